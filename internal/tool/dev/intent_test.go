package dev

import (
	"reflect"
	"testing"
)

func TestDecideInvocation(t *testing.T) {
	tests := []struct {
		input  string
		tool   string
		params map[string]any
	}{
		{
			"Calculate 2 + 3 * 4",
			"calculator",
			map[string]any{"expression": "2 + 3 * 4"},
		},
		{
			"count words in 'hello brave new world'",
			"text",
			map[string]any{"text": "hello brave new world", "operation": "wordcount"},
		},
		{
			`reverse "abc"`,
			"text",
			map[string]any{"text": "abc", "operation": "reverse"},
		},
		{
			"Create an API endpoint for user authentication",
			"api_endpoint",
			map[string]any{"endpoint_name": "user authentication", "http_method": "GET", "framework": "express"},
		},
		{
			"Create a FastAPI endpoint for user authentication",
			"api_endpoint",
			map[string]any{"endpoint_name": "user authentication", "http_method": "GET", "framework": "fastapi"},
		},
		{
			"implement a Flask API endpoint for login",
			"api_endpoint",
			map[string]any{"endpoint_name": "login", "http_method": "GET", "framework": "flask"},
		},
		{
			"create a react component for user profile",
			"component",
			map[string]any{"component_name": "UserProfile", "component_type": "functional", "use_typescript": true},
		},
		{
			"search for golang concurrency patterns",
			"search",
			map[string]any{"query": "golang concurrency patterns"},
		},
		{
			"look up http status codes",
			"search",
			map[string]any{"query": "http status codes"},
		},
		{
			"generate a database schema for orders",
			"sql_schema",
			map[string]any{"table_name": "orders"},
		},
	}
	for _, tt := range tests {
		inv, ok := DecideInvocation(tt.input)
		if !ok {
			t.Errorf("DecideInvocation(%q) matched nothing", tt.input)
			continue
		}
		if inv.Tool != tt.tool {
			t.Errorf("DecideInvocation(%q) tool = %s, want %s", tt.input, inv.Tool, tt.tool)
			continue
		}
		if !reflect.DeepEqual(inv.Params, tt.params) {
			t.Errorf("DecideInvocation(%q) params = %v, want %v", tt.input, inv.Params, tt.params)
		}
	}
}

func TestDecideInvocationNoMatch(t *testing.T) {
	for _, input := range []string{
		"explain how goroutines work",
		"what is the capital of France",
		"",
	} {
		if inv, ok := DecideInvocation(input); ok {
			t.Errorf("DecideInvocation(%q) unexpectedly matched %s", input, inv.Tool)
		}
	}
}
