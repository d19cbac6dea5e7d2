package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// Component generates React components, functional or class style, with
// optional TypeScript prop typing.
type Component struct{}

func NewComponent() *Component { return &Component{} }

func (c *Component) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "component",
		Description: "Generate React component code",
		Tags:        []string{"frontend", "generator", "react"},
		Params: []tool.ParamSpec{
			{Name: "component_name", Type: tool.TypeString, Required: true, Description: "Name of the component"},
			{Name: "component_type", Type: tool.TypeString, Enum: []string{"functional", "class"}, Description: "Component style"},
			{Name: "use_typescript", Type: tool.TypeBoolean, Description: "Whether to emit TypeScript"},
			{Name: "props", Type: tool.TypeObject, Description: "Prop name to type mapping"},
		},
	}
}

func (c *Component) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	rawName, err := requireString(params, "component_name")
	if err != nil {
		return nil, err
	}
	name := toPascalCase(rawName)
	kind := strings.ToLower(stringParam(params, "component_type", "functional"))
	useTS := boolParam(params, "use_typescript", true)
	props := sortedProps(objectParam(params, "props"))

	var code string
	switch kind {
	case "functional":
		code = generateFunctionalComponent(name, props, useTS)
	case "class":
		code = generateClassComponent(name, props, useTS)
	default:
		return nil, fmt.Errorf("unsupported component type %q", kind)
	}

	ext := "jsx"
	if useTS {
		ext = "tsx"
	}
	return &tool.Result{
		Output: code,
		Meta:   map[string]any{"component": name, "file": fmt.Sprintf("%s.%s", name, ext)},
	}, nil
}

type componentProp struct {
	Name string
	Type string
}

func sortedProps(raw map[string]any) []componentProp {
	props := make([]componentProp, 0, len(raw))
	for name, t := range raw {
		typeName, _ := t.(string)
		if typeName == "" {
			typeName = "string"
		}
		props = append(props, componentProp{Name: toCamelCase(name), Type: tsType(typeName)})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props
}

func tsType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer", "int", "float":
		return "number"
	case "boolean", "bool":
		return "boolean"
	case "object":
		return "Record<string, unknown>"
	case "array":
		return "unknown[]"
	default:
		return "string"
	}
}

func propNames(props []componentProp) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

func generateFunctionalComponent(name string, props []componentProp, useTS bool) string {
	var sb strings.Builder
	sb.WriteString("import React from 'react';\n\n")

	if useTS && len(props) > 0 {
		fmt.Fprintf(&sb, "interface %sProps {\n", name)
		for _, p := range props {
			fmt.Fprintf(&sb, "  %s: %s;\n", p.Name, p.Type)
		}
		sb.WriteString("}\n\n")
	}

	destructured := ""
	if len(props) > 0 {
		destructured = "{ " + strings.Join(propNames(props), ", ") + " }"
	}
	if useTS && len(props) > 0 {
		fmt.Fprintf(&sb, "const %s: React.FC<%sProps> = (%s) => {\n", name, name, destructured)
	} else if useTS {
		fmt.Fprintf(&sb, "const %s: React.FC = () => {\n", name)
	} else {
		fmt.Fprintf(&sb, "const %s = (%s) => {\n", name, destructured)
	}
	sb.WriteString("  return (\n")
	fmt.Fprintf(&sb, "    <div className=\"%s\">\n", toKebabCase(name))
	fmt.Fprintf(&sb, "      <h2>%s</h2>\n", name)
	for _, p := range props {
		fmt.Fprintf(&sb, "      <p>{%s}</p>\n", p.Name)
	}
	sb.WriteString("    </div>\n")
	sb.WriteString("  );\n")
	sb.WriteString("};\n\n")
	fmt.Fprintf(&sb, "export default %s;\n", name)
	return sb.String()
}

func generateClassComponent(name string, props []componentProp, useTS bool) string {
	var sb strings.Builder
	sb.WriteString("import React, { Component } from 'react';\n\n")

	if useTS && len(props) > 0 {
		fmt.Fprintf(&sb, "interface %sProps {\n", name)
		for _, p := range props {
			fmt.Fprintf(&sb, "  %s: %s;\n", p.Name, p.Type)
		}
		sb.WriteString("}\n\n")
	}

	if useTS && len(props) > 0 {
		fmt.Fprintf(&sb, "class %s extends Component<%sProps> {\n", name, name)
	} else {
		fmt.Fprintf(&sb, "class %s extends Component {\n", name)
	}
	sb.WriteString("  render() {\n")
	if len(props) > 0 {
		fmt.Fprintf(&sb, "    const { %s } = this.props;\n", strings.Join(propNames(props), ", "))
	}
	sb.WriteString("    return (\n")
	fmt.Fprintf(&sb, "      <div className=\"%s\">\n", toKebabCase(name))
	fmt.Fprintf(&sb, "        <h2>%s</h2>\n", name)
	for _, p := range props {
		fmt.Fprintf(&sb, "        <p>{%s}</p>\n", p.Name)
	}
	sb.WriteString("      </div>\n")
	sb.WriteString("    );\n")
	sb.WriteString("  }\n")
	sb.WriteString("}\n\n")
	fmt.Fprintf(&sb, "export default %s;\n", name)
	return sb.String()
}
