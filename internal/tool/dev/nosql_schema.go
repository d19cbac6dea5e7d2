package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// NoSQLSchema generates a MongoDB collection definition with a
// $jsonSchema validator.
type NoSQLSchema struct{}

func NewNoSQLSchema() *NoSQLSchema { return &NoSQLSchema{} }

func (s *NoSQLSchema) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "nosql_schema",
		Description: "Generate MongoDB collection schemas with validators",
		Tags:        []string{"database", "generator", "nosql"},
		Params: []tool.ParamSpec{
			{Name: "collection_name", Type: tool.TypeString, Required: true, Description: "Name of the collection"},
			{Name: "fields", Type: tool.TypeObject, Description: "Field name to type mapping"},
			{Name: "required", Type: tool.TypeArray, Description: "Required field names"},
		},
	}
}

func bsonType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer", "int":
		return "int"
	case "float":
		return "double"
	case "boolean", "bool":
		return "bool"
	case "datetime", "date":
		return "date"
	case "array":
		return "array"
	case "object":
		return "object"
	default:
		return "string"
	}
}

func (s *NoSQLSchema) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	rawName, err := requireString(params, "collection_name")
	if err != nil {
		return nil, err
	}
	collection := toSnakeCase(rawName)

	fields := sortedFields(objectParam(params, "fields"))

	required := []string{}
	for _, r := range arrayParam(params, "required") {
		if name, ok := r.(string); ok && name != "" {
			required = append(required, toCamelCase(name))
		}
	}
	sort.Strings(required)

	var sb strings.Builder
	fmt.Fprintf(&sb, "db.createCollection(%q, {\n", collection)
	sb.WriteString("  validator: {\n")
	sb.WriteString("    $jsonSchema: {\n")
	sb.WriteString("      bsonType: \"object\",\n")
	if len(required) > 0 {
		quoted := make([]string, len(required))
		for i, r := range required {
			quoted[i] = fmt.Sprintf("%q", r)
		}
		fmt.Fprintf(&sb, "      required: [%s],\n", strings.Join(quoted, ", "))
	}
	sb.WriteString("      properties: {\n")
	for i, f := range fields {
		fmt.Fprintf(&sb, "        %s: {\n", toCamelCase(f.Name))
		fmt.Fprintf(&sb, "          bsonType: %q,\n", bsonType(f.Type))
		fmt.Fprintf(&sb, "          description: %q,\n", fmt.Sprintf("%s field", toCamelCase(f.Name)))
		sb.WriteString("        }")
		if i < len(fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("      },\n")
	sb.WriteString("    },\n")
	sb.WriteString("  },\n")
	sb.WriteString("});\n")

	fmt.Fprintf(&sb, "\ndb.%s.createIndex({ createdAt: 1 });\n", collection)

	return &tool.Result{
		Output: sb.String(),
		Meta:   map[string]any{"collection": collection, "fields": len(fields)},
	}, nil
}
