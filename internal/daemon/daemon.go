// Package daemon wires the runtime together: storage, memory, the
// model gateway, the tool registry, the orchestrator, the event bus
// and the HTTP server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/internal/event"
	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/notify"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/internal/pipeline"
	"github.com/kazz187/devguild/internal/planner"
	"github.com/kazz187/devguild/internal/server"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/internal/tool/dev"
	"github.com/kazz187/devguild/pkg/panicerr"
	"github.com/kazz187/devguild/pkg/storage"
)

// Daemon holds the assembled runtime.
type Daemon struct {
	cfg      *config.Config
	bus      *event.EventBus
	store    *memory.Store
	registry *tool.Registry
	orch     *orchestrator.Orchestrator
	server   *server.Server
}

// New assembles the runtime from configuration. Nothing runs until
// Start is called.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	st, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	bus, err := event.NewEventBus()
	if err != nil {
		return nil, err
	}

	eventLogger, err := event.NewEventLogger(filepath.Join(cfg.Storage.BaseDir, "events"))
	if err != nil {
		return nil, err
	}
	event.RegisterEventLogger(bus, eventLogger)

	if len(cfg.Hooks) > 0 {
		hooks := make([]event.Hook, 0, len(cfg.Hooks))
		for _, h := range cfg.Hooks {
			hooks = append(hooks, event.Hook{
				Name:    h.Name,
				Event:   event.EventType(h.Event),
				Command: h.Command,
				Timeout: h.Timeout,
			})
		}
		event.RegisterHooks(bus, event.NewHookExecutor(hooks))
	}

	store, err := memory.NewStore(ctx, cfg.Memory, st)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	if err := dev.RegisterAll(registry, cfg.Tools.Enabled); err != nil {
		return nil, err
	}

	completer, err := gateway.NewCompleter(&cfg.Gateway)
	if err != nil {
		return nil, err
	}
	opts := gateway.Options{
		Model:       cfg.Gateway.Model,
		Temperature: cfg.Gateway.Temperature,
		MaxTokens:   cfg.Gateway.MaxTokens,
	}

	plans := planner.New(completer,
		planner.WithOptions(opts),
		planner.WithMaxSteps(cfg.Orchestrator.MaxPlanSteps),
	)
	pipe := pipeline.New(completer, registry,
		pipeline.WithMemory(store),
		pipeline.WithPublisher(bus),
		pipeline.WithCompletionOptions(opts),
		pipeline.WithMaxIterations(cfg.Orchestrator.MaxIterations),
	)
	orch := orchestrator.New(completer, plans, pipe, registry,
		orchestrator.WithThreshold(cfg.Orchestrator.ComplexityThreshold),
		orchestrator.WithMemory(store),
		orchestrator.WithPublisher(bus),
		orchestrator.WithCompletionOptions(opts),
	)

	subs := notify.NewSubscriptionStore(st)
	sender := notify.NewSender(cfg.Notify, subs, nil)
	if sender.Enabled() {
		if err := notify.NewDispatcher(sender).Register(bus); err != nil {
			return nil, err
		}
	}

	return &Daemon{
		cfg:      cfg,
		bus:      bus,
		store:    store,
		registry: registry,
		orch:     orch,
		server:   server.NewServer(cfg.Server, orch, registry, store, subs, nil),
	}, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "", "local":
		return storage.NewLocalStorage(cfg.BaseDir)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Orchestrator returns the assembled orchestrator, for one-shot CLI use.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}

// Registry returns the tool registry.
func (d *Daemon) Registry() *tool.Registry {
	return d.registry
}

// Memory returns the memory store.
func (d *Daemon) Memory() *memory.Store {
	return d.store
}

// Bus returns the event bus. It delivers events only while Start runs.
func (d *Daemon) Bus() *event.EventBus {
	return d.bus
}

// StartBus runs only the event bus, for CLI commands that execute a
// task without the HTTP server. It returns once the bus is running.
func (d *Daemon) StartBus(ctx context.Context) {
	go func() {
		_ = d.bus.Start(ctx)
	}()
	select {
	case <-d.bus.Running():
	case <-ctx.Done():
	}
}

// Start runs the event bus and the HTTP server until ctx is cancelled
// or one of them fails.
func (d *Daemon) Start(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(panicerr.SafeContext(d.bus.Start))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		err := d.server.ListenAndServe(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return d.bus.Stop()
	}))

	return p.Wait()
}
