package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// SQLSchema generates CREATE TABLE statements with optional indexes.
type SQLSchema struct{}

func NewSQLSchema() *SQLSchema { return &SQLSchema{} }

func (s *SQLSchema) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "sql_schema",
		Description: "Generate SQL table schemas and indexes",
		Tags:        []string{"database", "generator", "sql"},
		Params: []tool.ParamSpec{
			{Name: "table_name", Type: tool.TypeString, Required: true, Description: "Name of the table"},
			{Name: "columns", Type: tool.TypeObject, Description: "Column name to type mapping"},
			{Name: "indexes", Type: tool.TypeArray, Description: "Column names to index"},
		},
	}
}

func sqlType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer", "int":
		return "INTEGER"
	case "float":
		return "DOUBLE PRECISION"
	case "boolean", "bool":
		return "BOOLEAN"
	case "datetime", "date":
		return "TIMESTAMP"
	case "text":
		return "TEXT"
	default:
		return "VARCHAR(255)"
	}
}

func (s *SQLSchema) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	rawName, err := requireString(params, "table_name")
	if err != nil {
		return nil, err
	}
	table := toSnakeCase(rawName)

	raw := objectParam(params, "columns")
	cols := make([]modelField, 0, len(raw))
	for name, t := range raw {
		typeName, _ := t.(string)
		cols = append(cols, modelField{Name: toSnakeCase(name), Type: typeName})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", table)
	sb.WriteString("    id BIGSERIAL PRIMARY KEY")
	for _, c := range cols {
		fmt.Fprintf(&sb, ",\n    %s %s", c.Name, sqlType(c.Type))
	}
	sb.WriteString(",\n    created_at TIMESTAMP NOT NULL DEFAULT now()")
	sb.WriteString(",\n    updated_at TIMESTAMP NOT NULL DEFAULT now()\n")
	sb.WriteString(");\n")

	for _, idx := range arrayParam(params, "indexes") {
		col, ok := idx.(string)
		if !ok || col == "" {
			continue
		}
		col = toSnakeCase(col)
		fmt.Fprintf(&sb, "\nCREATE INDEX idx_%s_%s ON %s (%s);\n", table, col, table, col)
	}

	return &tool.Result{
		Output: sb.String(),
		Meta:   map[string]any{"table": table, "columns": len(cols)},
	}, nil
}
