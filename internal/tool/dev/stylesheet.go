package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// Stylesheet generates CSS or SCSS blocks following the BEM naming scheme.
type Stylesheet struct{}

func NewStylesheet() *Stylesheet { return &Stylesheet{} }

func (s *Stylesheet) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "stylesheet",
		Description: "Generate CSS or SCSS stylesheet code",
		Tags:        []string{"frontend", "generator", "css"},
		Params: []tool.ParamSpec{
			{Name: "block_name", Type: tool.TypeString, Required: true, Description: "BEM block name"},
			{Name: "format", Type: tool.TypeString, Enum: []string{"css", "scss"}, Description: "Output format"},
			{Name: "elements", Type: tool.TypeArray, Description: "Element names within the block"},
			{Name: "properties", Type: tool.TypeObject, Description: "CSS property to value mapping for the block"},
		},
	}
}

func (s *Stylesheet) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	rawName, err := requireString(params, "block_name")
	if err != nil {
		return nil, err
	}
	block := toKebabCase(rawName)
	format := strings.ToLower(stringParam(params, "format", "css"))

	var elements []string
	for _, e := range arrayParam(params, "elements") {
		if name, ok := e.(string); ok && name != "" {
			elements = append(elements, toKebabCase(name))
		}
	}
	props := sortedDeclarations(objectParam(params, "properties"))

	var code string
	switch format {
	case "css":
		code = generateCSS(block, elements, props)
	case "scss":
		code = generateSCSS(block, elements, props)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &tool.Result{
		Output: code,
		Meta:   map[string]any{"format": format, "block": block},
	}, nil
}

type declaration struct {
	Property string
	Value    string
}

func sortedDeclarations(raw map[string]any) []declaration {
	decls := make([]declaration, 0, len(raw))
	for prop, v := range raw {
		value := fmt.Sprintf("%v", v)
		decls = append(decls, declaration{Property: toKebabCase(prop), Value: value})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Property < decls[j].Property })
	if len(decls) == 0 {
		decls = []declaration{
			{Property: "display", Value: "flex"},
			{Property: "flex-direction", Value: "column"},
		}
	}
	return decls
}

func generateCSS(block string, elements []string, decls []declaration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".%s {\n", block)
	for _, d := range decls {
		fmt.Fprintf(&sb, "  %s: %s;\n", d.Property, d.Value)
	}
	sb.WriteString("}\n")
	for _, el := range elements {
		fmt.Fprintf(&sb, "\n.%s__%s {\n", block, el)
		sb.WriteString("  /* styles */\n")
		sb.WriteString("}\n")
	}
	return sb.String()
}

func generateSCSS(block string, elements []string, decls []declaration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".%s {\n", block)
	for _, d := range decls {
		fmt.Fprintf(&sb, "  %s: %s;\n", d.Property, d.Value)
	}
	for _, el := range elements {
		fmt.Fprintf(&sb, "\n  &__%s {\n", el)
		sb.WriteString("    /* styles */\n")
		sb.WriteString("  }\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
