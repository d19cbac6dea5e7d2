package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// ORMModel generates database model definitions for SQLAlchemy or Prisma.
type ORMModel struct{}

func NewORMModel() *ORMModel { return &ORMModel{} }

func (o *ORMModel) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "orm_model",
		Description: "Generate database model code for various ORMs",
		Tags:        []string{"backend", "generator", "database"},
		Params: []tool.ParamSpec{
			{Name: "model_name", Type: tool.TypeString, Required: true, Description: "Name of the model"},
			{Name: "orm", Type: tool.TypeString, Enum: []string{"sqlalchemy", "prisma"}, Description: "Target ORM"},
			{Name: "fields", Type: tool.TypeObject, Description: "Field name to type mapping"},
		},
	}
}

type modelField struct {
	Name string
	Type string
}

func sortedFields(raw map[string]any) []modelField {
	fields := make([]modelField, 0, len(raw))
	for name, t := range raw {
		typeName, _ := t.(string)
		if typeName == "" {
			typeName = "string"
		}
		fields = append(fields, modelField{Name: name, Type: strings.ToLower(typeName)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func (o *ORMModel) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	name, err := requireString(params, "model_name")
	if err != nil {
		return nil, err
	}
	orm := strings.ToLower(stringParam(params, "orm", "sqlalchemy"))
	fields := sortedFields(objectParam(params, "fields"))

	var code string
	switch orm {
	case "sqlalchemy":
		code = generateSQLAlchemyModel(name, fields)
	case "prisma":
		code = generatePrismaModel(name, fields)
	default:
		return nil, fmt.Errorf("unsupported orm %q", orm)
	}
	return &tool.Result{
		Output: code,
		Meta:   map[string]any{"orm": orm, "model": toPascalCase(name)},
	}, nil
}

func sqlalchemyType(t string) string {
	switch t {
	case "number", "integer", "int":
		return "Integer"
	case "float":
		return "Float"
	case "boolean", "bool":
		return "Boolean"
	case "datetime", "date":
		return "DateTime"
	case "text":
		return "Text"
	default:
		return "String"
	}
}

func generateSQLAlchemyModel(name string, fields []modelField) string {
	var sb strings.Builder
	sb.WriteString("from sqlalchemy import Boolean, Column, DateTime, Float, Integer, String, Text\n")
	sb.WriteString("from sqlalchemy.orm import declarative_base\n\n")
	sb.WriteString("Base = declarative_base()\n\n\n")
	fmt.Fprintf(&sb, "class %s(Base):\n", toPascalCase(name))
	fmt.Fprintf(&sb, "    __tablename__ = \"%s\"\n\n", toSnakeCase(name))
	sb.WriteString("    id = Column(Integer, primary_key=True, autoincrement=True)\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "    %s = Column(%s)\n", toSnakeCase(f.Name), sqlalchemyType(f.Type))
	}
	sb.WriteString("\n    def __repr__(self):\n")
	fmt.Fprintf(&sb, "        return f\"<%s id={self.id}>\"\n", toPascalCase(name))
	return sb.String()
}

func prismaType(t string) string {
	switch t {
	case "number", "integer", "int":
		return "Int"
	case "float":
		return "Float"
	case "boolean", "bool":
		return "Boolean"
	case "datetime", "date":
		return "DateTime"
	default:
		return "String"
	}
}

func generatePrismaModel(name string, fields []modelField) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "model %s {\n", toPascalCase(name))
	sb.WriteString("  id        Int      @id @default(autoincrement())\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "  %s %s\n", toCamelCase(f.Name), prismaType(f.Type))
	}
	sb.WriteString("  createdAt DateTime @default(now())\n")
	sb.WriteString("  updatedAt DateTime @updatedAt\n")
	sb.WriteString("}\n")
	return sb.String()
}
