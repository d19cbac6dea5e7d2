package tool

import (
	"context"
	"testing"

	"github.com/kazz187/devguild/pkg/cerr"
)

type fakeTool struct {
	desc  Descriptor
	calls int
}

func (f *fakeTool) Descriptor() Descriptor { return f.desc }

func (f *fakeTool) Execute(_ context.Context, params map[string]any) (*Result, error) {
	f.calls++
	return &Result{Output: "ran " + f.desc.Name}, nil
}

func newFakeTool(name string) *fakeTool {
	return &fakeTool{desc: Descriptor{
		Name:        name,
		Description: "fake tool",
		Params: []ParamSpec{
			{Name: "input", Type: TypeString, Required: true},
			{Name: "count", Type: TypeNumber},
		},
	}}
}

func TestRegistryDiscoverOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(newFakeTool(name)); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	descs := r.Discover()
	want := []string{"charlie", "alpha", "bravo"}
	if len(descs) != len(want) {
		t.Fatalf("Discover returned %d tools, want %d", len(descs), len(want))
	}
	for i, d := range descs {
		if d.Name != want[i] {
			t.Errorf("Discover[%d] = %s, want %s (registration order)", i, d.Name, want[i])
		}
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFakeTool("dup")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(newFakeTool("dup"))
	if !cerr.IsCode(err, cerr.AlreadyExists) {
		t.Errorf("duplicate Register = %v, want AlreadyExists", err)
	}
}

func TestRegistryExecuteUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil)
	if !cerr.IsCode(err, cerr.NotFound) {
		t.Errorf("Execute(missing) = %v, want NotFound", err)
	}
}

func TestRegistryExecuteValidation(t *testing.T) {
	r := NewRegistry()
	ft := newFakeTool("checked")
	if err := r.Register(ft); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := context.Background()

	// Missing required parameter.
	_, err := r.Execute(ctx, "checked", map[string]any{"count": 1.0})
	if !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Errorf("missing required = %v, want InvalidArgument", err)
	}

	// Wrong type.
	_, err = r.Execute(ctx, "checked", map[string]any{"input": 42})
	if !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Errorf("wrong type = %v, want InvalidArgument", err)
	}

	// Validation failures must never dispatch.
	if ft.calls != 0 {
		t.Errorf("tool dispatched %d times despite validation failures", ft.calls)
	}

	// Valid call dispatches once.
	result, err := r.Execute(ctx, "checked", map[string]any{"input": "hello", "count": 2.0})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Output != "ran checked" {
		t.Errorf("Output = %q", result.Output)
	}
	if result.Tool != "checked" {
		t.Errorf("Tool = %q, want checked", result.Tool)
	}
	if ft.calls != 1 {
		t.Errorf("calls = %d, want 1", ft.calls)
	}
}

func TestRegistryEnumValidation(t *testing.T) {
	r := NewRegistry()
	ft := &fakeTool{desc: Descriptor{
		Name: "enum",
		Params: []ParamSpec{
			{Name: "framework", Type: TypeString, Required: true, Enum: []string{"express", "fastapi", "flask"}},
		},
	}}
	if err := r.Register(ft); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := r.Execute(context.Background(), "enum", map[string]any{"framework": "rails"})
	if !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Errorf("enum mismatch = %v, want InvalidArgument", err)
	}
	if _, err := r.Execute(context.Background(), "enum", map[string]any{"framework": "Express"}); err != nil {
		t.Errorf("enum match should be case-insensitive: %v", err)
	}
}
