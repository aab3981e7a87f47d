// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invowk/livebind/internal/dag"
	"github.com/invowk/livebind/pkg/bridge"
	"github.com/invowk/livebind/pkg/builtin"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/loop"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/requirefunc"
	"github.com/invowk/livebind/pkg/sourcetype"
)

type (
	// ModuleBody is a declarative module body.
	ModuleBody func(rt *Runtime) error

	// ScriptBody is a classic module body. It may mutate exports, or replace
	// the module's exports wholesale by assigning mod.Exports.
	ScriptBody func(exports *nullobject.Object, require requirefunc.Func, mod *host.Module) error

	// Engine is the composition root of one load session.
	Engine struct {
		host     bridge.Host
		registry *entry.Registry
		bridge   *bridge.Bridge
		loop     *loop.Loop
		opts     host.Options
		logger   *slog.Logger

		maxSteps int
		builtins *builtin.Table
		policy   bridge.EvictionPolicy
	}

	// Option configures an Engine.
	Option func(*Engine)

	executorSetter interface {
		SetExecutor(host.Executor)
	}
)

// WithInterop lets declarative bodies use require and routes classic
// requires through the declarative load path.
func WithInterop(on bool) Option {
	return func(e *Engine) { e.opts.Interop = on }
}

// WithLoop sets the task loop used by dynamic imports.
func WithLoop(l *loop.Loop) Option {
	return func(e *Engine) {
		if l != nil {
			e.loop = l
		}
	}
}

// WithBuiltins sets the builtin table.
func WithBuiltins(t *builtin.Table) Option {
	return func(e *Engine) { e.builtins = t }
}

// WithEvictionPolicy replaces the bridge's cache eviction policy.
func WithEvictionPolicy(p bridge.EvictionPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMaxSteps bounds propagation waves.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over h. When h accepts an executor, the
// engine installs Execute as its executor.
func NewEngine(h bridge.Host, opts ...Option) *Engine {
	e := &Engine{
		host:     h,
		logger:   slog.Default(),
		maxSteps: entry.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loop == nil {
		e.loop = loop.New(loop.WithLogger(e.logger))
	}
	e.registry = entry.NewRegistry(entry.WithMaxSteps(e.maxSteps), entry.WithLogger(e.logger))
	e.bridge = bridge.New(h, e.registry,
		bridge.WithBuiltins(e.builtins),
		bridge.WithPolicy(e.policy),
		bridge.WithLogger(e.logger),
	)
	if es, ok := h.(executorSetter); ok {
		es.SetExecutor(e.Execute)
	}
	return e
}

// Registry returns the Entry registry.
func (e *Engine) Registry() *entry.Registry { return e.registry }

// Loop returns the task loop.
func (e *Engine) Loop() *loop.Loop { return e.loop }

// Session returns the load session.
func (e *Engine) Session() *bridge.Session { return e.bridge.Session() }

// Options returns the loader options.
func (e *Engine) Options() host.Options { return e.opts }

// Execute runs body for the freshly created mod. It is the host's executor.
// When the body fails the module's Entry is dropped from the registry, so a
// later load of the same identity starts over.
func (e *Engine) Execute(mod *host.Module, body any) error {
	var err error
	switch b := body.(type) {
	case ModuleBody:
		err = e.executeModule(mod, b)
	case func(*Runtime) error:
		err = e.executeModule(mod, b)
	case ScriptBody:
		err = e.executeScript(mod, b)
	case func(*nullobject.Object, requirefunc.Func, *host.Module) error:
		err = e.executeScript(mod, b)
	default:
		return fmt.Errorf("%w: %T in module %s", ErrUnsupportedBody, body, mod.ID)
	}
	if err != nil && e.registry.Forget(mod.ID) {
		e.logger.Debug("forgot entry of failed module", "module", mod.ID, "error", err)
	}
	return err
}

func (e *Engine) executeModule(mod *host.Module, body ModuleBody) error {
	exports := nullobject.New()
	exports.MarkModule()
	mod.Exports = exports
	return e.Enable(mod, exports).Run(body)
}

func (e *Engine) executeScript(mod *host.Module, body ScriptBody) error {
	exports := nullobject.New()
	mod.Exports = exports
	return e.Enable(mod, exports).Run(body)
}

// Enable attaches a Runtime to mod, whose exports value is exported.
func (e *Engine) Enable(mod *host.Module, exported any) *Runtime {
	ent := e.registry.Get(mod)
	ent = ent.Merge(e.registry.GetWith(mod, exported, e.opts))
	ent.SetModule(mod)
	ent.SetExports(exported)
	ent.SetSourceType(sourcetype.Classify(exported))
	e.registry.Set(exported, ent)
	return &Runtime{engine: e, entry: ent, module: mod}
}

// Main loads specifier as the entry point of the session and returns its
// Entry.
func (e *Engine) Main(specifier string) (*entry.Entry, error) {
	release := e.Session().Enter()
	defer release()

	res, err := e.bridge.Main(specifier, e.opts)
	if err != nil {
		return nil, err
	}
	child := e.adopt(res)
	if err := child.Loaded(); err != nil {
		return nil, err
	}
	return child, nil
}

// Drain runs the loop until no deferred work is left.
func (e *Engine) Drain(ctx context.Context) error {
	return e.loop.Run(ctx)
}

// Graph returns the live dependency graph built from every Entry's
// children. An edge runs from a dependency to its importer.
func (e *Engine) Graph() *dag.Graph {
	g := dag.New()
	entries := e.registry.Entries()
	for _, ent := range entries {
		g.AddNode(ent.ID)
	}
	for _, ent := range entries {
		for _, child := range ent.Children() {
			g.AddEdge(child.ID, ent.ID)
		}
	}
	return g
}

// adopt returns the registered Entry for a loaded child, folding in the
// Entry owning its current exports and recording its classification.
func (e *Engine) adopt(res *bridge.Result) *entry.Entry {
	if res.Entry != nil {
		return res.Entry
	}
	mod := res.Module
	exported := mod.Exports
	child := e.registry.Get(mod)
	child = child.Merge(e.registry.GetWith(mod, exported, e.opts))
	child.SetExports(exported)
	child.SetSourceType(sourcetype.Classify(exported))
	e.registry.Set(exported, child)
	return child
}
