package clog

import (
	"context"
	"errors"
	"testing"
)

func TestContextAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "01ABC")
	AddAttributes(ctx, map[string]any{
		"mode": "multi",
		"nested": map[string]any{
			"score": 7.5,
		},
	})
	AddAttributes(ctx, map[string]any{
		"nested": map[string]any{
			"iterations": 3,
		},
	})

	attrs := GetAttributes(ctx)
	if attrs["task_id"] != "01ABC" {
		t.Errorf("task_id = %v, want 01ABC", attrs["task_id"])
	}
	nested, ok := attrs["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested attribute missing: %v", attrs)
	}
	if nested["score"] != 7.5 || nested["iterations"] != 3 {
		t.Errorf("nested maps not merged: %v", nested)
	}
}

func TestContextAttributesWithoutSlog(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "ignored", true)
	if attrs := GetAttributes(ctx); attrs != nil {
		t.Errorf("expected nil attributes, got %v", attrs)
	}
}

func TestAddTask(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddTask(ctx, "T-01ABC", "multi")
	if got := GetTaskID(ctx); got != "T-01ABC" {
		t.Errorf("GetTaskID = %q, want %q", got, "T-01ABC")
	}
	if got := GetAttribute[string](ctx, ModeAttributeKey); got != "multi" {
		t.Errorf("mode attribute = %q, want %q", got, "multi")
	}
}

func TestMapToAttrsSorted(t *testing.T) {
	attrs := mapToAttrs(map[string]any{"c": 1, "a": 2, "b": 3})
	want := []string{"a", "b", "c"}
	for i, attr := range attrs {
		if attr.Key != want[i] {
			t.Errorf("attrs[%d] = %s, want %s", i, attr.Key, want[i])
		}
	}
}

func TestAddError(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	wantErr := errors.New("boom")
	AddError(ctx, wantErr)
	if got := GetError(ctx); !errors.Is(got, wantErr) {
		t.Errorf("GetError = %v, want %v", got, wantErr)
	}
	AddStack(ctx, "stack")
	if got := GetStack(ctx); got != "stack" {
		t.Errorf("GetStack = %q, want %q", got, "stack")
	}
}
