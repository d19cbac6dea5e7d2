package dev

import "fmt"

func stringParam(params map[string]any, name, fallback string) string {
	if v, ok := params[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

func requireString(params map[string]any, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", name)
	}
	return v, nil
}

func boolParam(params map[string]any, name string, fallback bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return fallback
}

func intParam(params map[string]any, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func objectParam(params map[string]any, name string) map[string]any {
	if v, ok := params[name].(map[string]any); ok {
		return v
	}
	return nil
}

func arrayParam(params map[string]any, name string) []any {
	if v, ok := params[name].([]any); ok {
		return v
	}
	return nil
}
