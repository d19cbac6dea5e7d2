package main

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Input types for MCP tools
type RunTaskInput struct {
	Description string            `json:"description"`
	Context     map[string]string `json:"context,omitempty"`
	Mode        string            `json:"mode,omitempty"`
}

type GetTaskInput struct {
	ID string `json:"id"`
}

type ExecuteToolInput struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

type SearchMemoryInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// JSON Schema definitions for MCP tools
var RunTaskInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"description": {
			Type:        "string",
			Description: "The development task to execute",
		},
		"context": {
			Type:                 "object",
			Description:          "Additional task context as key-value pairs",
			AdditionalProperties: boolSchema(true),
		},
		"mode": {
			Type:        "string",
			Description: "Execution mode. auto routes by complexity score, single answers with one completion, multi runs the role pipeline",
			Enum:        []interface{}{"auto", "single", "multi"},
		},
	},
	Required:             []string{"description"},
	AdditionalProperties: boolSchema(false),
}

var GetTaskInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID to retrieve",
		},
	},
	Required:             []string{"id"},
	AdditionalProperties: boolSchema(false),
}

var ListToolsInputSchema = &jsonschema.Schema{
	Type:                 "object",
	Properties:           map[string]*jsonschema.Schema{},
	AdditionalProperties: boolSchema(false),
}

var ExecuteToolInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"name": {
			Type:        "string",
			Description: "Name of the registered tool (e.g. calculator, api_endpoint, sql_schema)",
		},
		"params": {
			Type:                 "object",
			Description:          "Tool parameters, validated against the tool's declared schema",
			AdditionalProperties: boolSchema(true),
		},
	},
	Required:             []string{"name"},
	AdditionalProperties: boolSchema(false),
}

var SearchMemoryInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"query": {
			Type:        "string",
			Description: "Search query matched against archived memories",
		},
		"limit": {
			Type:        "integer",
			Description: "Maximum number of hits to return",
			Default:     intPtr(5),
			Minimum:     float64Ptr(1),
			Maximum:     float64Ptr(100),
		},
	},
	Required:             []string{"query"},
	AdditionalProperties: boolSchema(false),
}

func float64Ptr(f float64) *float64 {
	return &f
}

func intPtr(i int) json.RawMessage {
	b, _ := json.Marshal(i)
	return b
}

func boolSchema(b bool) *jsonschema.Schema {
	if b {
		return &jsonschema.Schema{}
	}
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}
