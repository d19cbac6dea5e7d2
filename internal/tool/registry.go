package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kazz187/devguild/pkg/cerr"
)

// Registry holds the registered tools. Discovery preserves registration
// order; execution validates parameters before any dispatch happens.
type Registry struct {
	mu    sync.RWMutex
	order []Tool
	index map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		index: map[string]Tool{},
	}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(t Tool) error {
	desc := t.Descriptor()
	if desc.Name == "" {
		return cerr.NewError(cerr.InvalidArgument, "tool name is empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[desc.Name]; ok {
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("tool %s already registered", desc.Name), nil)
	}
	r.index[desc.Name] = t
	r.order = append(r.order, t)
	return nil
}

// Discover returns descriptors in registration order.
func (r *Registry) Discover() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]Descriptor, 0, len(r.order))
	for _, t := range r.order {
		descs = append(descs, t.Descriptor())
	}
	return descs
}

// Lookup returns the named tool's descriptor.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	r.mu.RLock()
	t, ok := r.index[name]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, cerr.NewError(cerr.NotFound, fmt.Sprintf("unknown tool %s", name), nil)
	}
	return t.Descriptor(), nil
}

// Execute validates params against the named tool's schema and dispatches.
// Validation failures never reach the tool.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	r.mu.RLock()
	t, ok := r.index[name]
	r.mu.RUnlock()
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("unknown tool %s", name), nil)
	}

	if err := validateParams(t.Descriptor(), params); err != nil {
		return nil, err
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.Tool == "" {
		result.Tool = name
	}
	if result.At.IsZero() {
		result.At = time.Now()
	}
	return result, nil
}

func validateParams(desc Descriptor, params map[string]any) error {
	for _, spec := range desc.Params {
		value, present := params[spec.Name]
		if !present {
			if spec.Required {
				return cerr.NewError(cerr.InvalidArgument,
					fmt.Sprintf("tool %s: missing required parameter %s", desc.Name, spec.Name), nil)
			}
			continue
		}
		if err := checkType(spec, value); err != nil {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("tool %s: %v", desc.Name, err), nil)
		}
	}
	return nil
}

func checkType(spec ParamSpec, value any) error {
	switch spec.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %s must be a string", spec.Name)
		}
		if len(spec.Enum) > 0 && !containsFold(spec.Enum, s) {
			return fmt.Errorf("parameter %s must be one of %s", spec.Name, strings.Join(spec.Enum, ", "))
		}
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("parameter %s must be a number", spec.Name)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %s must be a boolean", spec.Name)
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("parameter %s must be an object", spec.Name)
		}
	case TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("parameter %s must be an array", spec.Name)
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
