package dev

import (
	"context"
	"fmt"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// APIEndpoint generates HTTP endpoint skeletons for common backend
// frameworks. The framework choice controls language and idiom only.
type APIEndpoint struct{}

func NewAPIEndpoint() *APIEndpoint { return &APIEndpoint{} }

func (a *APIEndpoint) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "api_endpoint",
		Description: "Generate API endpoint code for various frameworks",
		Tags:        []string{"backend", "generator", "api"},
		Params: []tool.ParamSpec{
			{Name: "endpoint_name", Type: tool.TypeString, Required: true, Description: "Name of the API endpoint to generate"},
			{Name: "http_method", Type: tool.TypeString, Enum: []string{"GET", "POST", "PUT", "DELETE", "PATCH"}, Description: "HTTP method for the endpoint"},
			{Name: "framework", Type: tool.TypeString, Enum: []string{"express", "fastapi", "flask"}, Description: "Backend framework to use"},
			{Name: "parameters", Type: tool.TypeArray, Description: "Endpoint parameters: name, type, location, required"},
			{Name: "description", Type: tool.TypeString, Description: "Description of the endpoint"},
			{Name: "use_types", Type: tool.TypeBoolean, Description: "Whether to use TypeScript / type hints"},
		},
	}
}

type endpointParam struct {
	Name     string
	Type     string
	Location string
	Required bool
}

func parseEndpointParams(raw []any) []endpointParam {
	var out []endpointParam
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := endpointParam{
			Name:     stringParam(m, "name", ""),
			Type:     stringParam(m, "type", "string"),
			Location: stringParam(m, "location", "query"),
			Required: boolParam(m, "required", false),
		}
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *APIEndpoint) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	name, err := requireString(params, "endpoint_name")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(stringParam(params, "http_method", "GET"))
	framework := strings.ToLower(stringParam(params, "framework", "express"))
	useTypes := boolParam(params, "use_types", true)
	eps := parseEndpointParams(arrayParam(params, "parameters"))
	desc := stringParam(params, "description", "")

	var code, lang string
	switch framework {
	case "express":
		code = generateExpressEndpoint(name, method, eps, desc, useTypes)
		lang = "typescript"
		if !useTypes {
			lang = "javascript"
		}
	case "fastapi":
		code = generateFastAPIEndpoint(name, method, eps, desc)
		lang = "python"
	case "flask":
		code = generateFlaskEndpoint(name, method, eps, desc)
		lang = "python"
	default:
		return nil, fmt.Errorf("unsupported framework %q", framework)
	}

	return &tool.Result{
		Output: code,
		Meta: map[string]any{
			"framework": framework,
			"language":  lang,
			"route":     nameToRoute(name),
		},
	}, nil
}

func nameToRoute(name string) string {
	return "/" + toKebabCase(name)
}

func generateExpressEndpoint(name, method string, params []endpointParam, desc string, useTypes bool) string {
	var sb strings.Builder
	if useTypes {
		sb.WriteString("import express, { Request, Response } from 'express';\n\n")
	} else {
		sb.WriteString("const express = require('express');\n\n")
	}
	sb.WriteString("const router = express.Router();\n\n")

	if desc != "" {
		sb.WriteString("/**\n")
		fmt.Fprintf(&sb, " * %s\n", desc)
		for _, p := range params {
			fmt.Fprintf(&sb, " * @param {%s} %s - (%s)\n", p.Type, p.Name, p.Location)
		}
		sb.WriteString(" */\n")
	}

	fmt.Fprintf(&sb, "router.%s('%s', ", strings.ToLower(method), nameToRoute(name))
	if useTypes {
		sb.WriteString("(req: Request, res: Response) => {\n")
	} else {
		sb.WriteString("(req, res) => {\n")
	}
	sb.WriteString("  try {\n")
	for _, p := range params {
		source := "req.query"
		switch p.Location {
		case "path":
			source = "req.params"
		case "body":
			source = "req.body"
		case "header":
			source = "req.headers"
		}
		fmt.Fprintf(&sb, "    const %s = %s.%s;\n", p.Name, source, p.Name)
		if p.Required {
			fmt.Fprintf(&sb, "    if (%s === undefined) {\n", p.Name)
			fmt.Fprintf(&sb, "      return res.status(400).json({ error: '%s is required' });\n", p.Name)
			sb.WriteString("    }\n")
		}
	}
	fmt.Fprintf(&sb, "    // TODO: implement %s\n", toCamelCase(name))
	sb.WriteString("    res.json({ message: 'ok' });\n")
	sb.WriteString("  } catch (err) {\n")
	sb.WriteString("    res.status(500).json({ error: 'internal server error' });\n")
	sb.WriteString("  }\n")
	sb.WriteString("});\n\n")
	sb.WriteString("export default router;\n")
	return sb.String()
}

func pythonType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer":
		return "int"
	case "float":
		return "float"
	case "boolean":
		return "bool"
	default:
		return "str"
	}
}

func generateFastAPIEndpoint(name, method string, params []endpointParam, desc string) string {
	var sb strings.Builder
	sb.WriteString("from fastapi import APIRouter, HTTPException\n\n")
	sb.WriteString("router = APIRouter()\n\n\n")
	fmt.Fprintf(&sb, "@router.%s(\"%s\")\n", strings.ToLower(method), nameToRoute(name))
	fmt.Fprintf(&sb, "async def %s(", toSnakeCase(name))

	var args []string
	for _, p := range params {
		arg := fmt.Sprintf("%s: %s", toSnakeCase(p.Name), pythonType(p.Type))
		if !p.Required {
			arg += " = None"
		}
		args = append(args, arg)
	}
	sb.WriteString(strings.Join(args, ", "))
	sb.WriteString("):\n")
	if desc != "" {
		fmt.Fprintf(&sb, "    \"\"\"%s\"\"\"\n", desc)
	}
	fmt.Fprintf(&sb, "    # TODO: implement %s\n", toSnakeCase(name))
	sb.WriteString("    return {\"message\": \"ok\"}\n")
	return sb.String()
}

func generateFlaskEndpoint(name, method string, params []endpointParam, desc string) string {
	var sb strings.Builder
	sb.WriteString("from flask import Blueprint, jsonify, request\n\n")
	fmt.Fprintf(&sb, "bp = Blueprint(\"%s\", __name__)\n\n\n", toSnakeCase(name))
	fmt.Fprintf(&sb, "@bp.route(\"%s\", methods=[\"%s\"])\n", nameToRoute(name), method)
	fmt.Fprintf(&sb, "def %s():\n", toSnakeCase(name))
	if desc != "" {
		fmt.Fprintf(&sb, "    \"\"\"%s\"\"\"\n", desc)
	}
	for _, p := range params {
		source := "request.args"
		switch p.Location {
		case "body":
			source = "request.json"
		case "header":
			source = "request.headers"
		}
		fmt.Fprintf(&sb, "    %s = %s.get(\"%s\")\n", toSnakeCase(p.Name), source, p.Name)
		if p.Required {
			fmt.Fprintf(&sb, "    if %s is None:\n", toSnakeCase(p.Name))
			fmt.Fprintf(&sb, "        return jsonify({\"error\": \"%s is required\"}), 400\n", p.Name)
		}
	}
	fmt.Fprintf(&sb, "    # TODO: implement %s\n", toSnakeCase(name))
	sb.WriteString("    return jsonify({\"message\": \"ok\"})\n")
	return sb.String()
}
