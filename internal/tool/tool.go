// Package tool implements the capability registry: tools register a typed
// parameter schema, callers discover them in registration order, and every
// execution is schema-checked before dispatch.
package tool

import (
	"context"
	"time"
)

// ParamType enumerates the JSON value types a parameter accepts.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Descriptor is a tool's advertised capability.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags,omitempty"`
	Params      []ParamSpec `json:"params"`
}

// Result is the outcome of one tool execution.
type Result struct {
	Tool   string         `json:"tool"`
	Output string         `json:"output"`
	Meta   map[string]any `json:"meta,omitempty"`
	At     time.Time      `json:"at"`
}

// Tool is a pure generator: Execute must not mutate shared state.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}
