package dev

import (
	"github.com/kazz187/devguild/internal/tool"
)

// All returns the built-in tool set in canonical registration order.
func All() []tool.Tool {
	return []tool.Tool{
		NewCalculator(),
		NewSearch(),
		NewText(),
		NewAPIEndpoint(),
		NewORMModel(),
		NewComponent(),
		NewStylesheet(),
		NewSQLSchema(),
		NewNoSQLSchema(),
		NewShellScript(),
	}
}

// RegisterAll registers the built-in tools. When enabled is non-empty,
// only the named tools are registered; order is always canonical.
func RegisterAll(reg *tool.Registry, enabled []string) error {
	allowed := map[string]bool{}
	for _, name := range enabled {
		allowed[name] = true
	}
	for _, t := range All() {
		if len(allowed) > 0 && !allowed[t.Descriptor().Name] {
			continue
		}
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
