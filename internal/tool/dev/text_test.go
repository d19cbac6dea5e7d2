package dev

import (
	"context"
	"testing"
)

func TestTextOperations(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"count", map[string]any{"text": "hello", "operation": "count"}, "5"},
		{"wordcount", map[string]any{"text": "one two  three", "operation": "wordcount"}, "3"},
		{"reverse", map[string]any{"text": "abc", "operation": "reverse"}, "cba"},
		{"uppercase", map[string]any{"text": "abc", "operation": "uppercase"}, "ABC"},
		{"lowercase", map[string]any{"text": "AbC", "operation": "lowercase"}, "abc"},
		{"capitalize", map[string]any{"text": "hello world", "operation": "capitalize"}, "Hello World"},
		{"camel", map[string]any{"text": "user profile page", "operation": "camel_case"}, "userProfilePage"},
		{"pascal", map[string]any{"text": "user-profile", "operation": "pascal_case"}, "UserProfile"},
		{"snake", map[string]any{"text": "UserProfilePage", "operation": "snake_case"}, "user_profile_page"},
		{"kebab", map[string]any{"text": "UserProfile", "operation": "kebab_case"}, "user-profile"},
		{"excerpt short", map[string]any{"text": "short text", "operation": "excerpt", "length": 100}, "short text"},
	}
	tl := NewText()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tl.Execute(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Output != tt.want {
				t.Errorf("got %q, want %q", res.Output, tt.want)
			}
		})
	}
}

func TestTextExcerptCutsAtWordBoundary(t *testing.T) {
	tl := NewText()
	res, err := tl.Execute(context.Background(), map[string]any{
		"text":      "the quick brown fox jumps over the lazy dog",
		"operation": "excerpt",
		"length":    15,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "the quick..." {
		t.Errorf("got %q", res.Output)
	}
}

func TestTextUnsupportedOperation(t *testing.T) {
	tl := NewText()
	if _, err := tl.Execute(context.Background(), map[string]any{"text": "x", "operation": "rot13"}); err == nil {
		t.Error("expected error for unsupported operation")
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"getUserByID", "get_user_by_id"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"Mixed Name-here", "mixed_name_here"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
