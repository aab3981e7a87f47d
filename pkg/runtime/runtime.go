// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"

	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/loop"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/requirefunc"
	"github.com/invowk/livebind/pkg/sourcetype"
)

// Runtime is the API a module body uses while it runs.
type Runtime struct {
	engine *Engine
	entry  *entry.Entry
	module *host.Module
	meta   *nullobject.Object
}

// Entry returns the module's Entry.
func (rt *Runtime) Entry() *entry.Entry {
	return rt.entry.Current()
}

// Module returns the host module.
func (rt *Runtime) Module() *host.Module {
	return rt.module
}

// Meta returns the module's meta object, holding its url.
func (rt *Runtime) Meta() *nullobject.Object {
	if rt.meta == nil {
		rt.meta = nullobject.New()
		rt.meta.Set("url", rt.Entry().URL)
	}
	return rt.meta
}

// Export registers bindings on the module's Entry.
func (rt *Runtime) Export(bindings ...entry.Binding) error {
	return rt.Entry().AddGetters(bindings...)
}

// Default exports value as the module's default binding.
func (rt *Runtime) Default(value any) error {
	return rt.Export(entry.Const(value).Bind(entry.DefaultName))
}

// NsSetter returns the setter that re-exports every binding of the module
// it is subscribed to.
func (rt *Runtime) NsSetter() entry.Setter {
	return func(_ any, child *entry.Entry) {
		rt.Entry().AddGettersFrom(child)
	}
}

// ExportAll re-exports every binding of specifier.
func (rt *Runtime) ExportAll(specifier string) error {
	return rt.Watch(specifier, entry.SetterPair{Name: entry.StarName, Set: rt.NsSetter()})
}

// Update propagates the module's bindings to its subscribers and returns
// value unchanged, so it can wrap the expression that changed a binding.
func (rt *Runtime) Update(value any) (any, error) {
	if err := rt.Entry().Update(); err != nil {
		return value, err
	}
	return value, nil
}

// Assign sets v to x and propagates the change.
func Assign[T any](rt *Runtime, v *entry.Var[T], x T) (T, error) {
	v.Set(x)
	if _, err := rt.Update(nil); err != nil {
		return x, err
	}
	return x, nil
}

// Watch loads specifier and subscribes setters to its bindings. The child is
// recorded as a dependency and marked loaded if its body has finished;
// setters are called with every binding that is available now and again on
// every later change.
func (rt *Runtime) Watch(specifier string, setters ...entry.SetterPair) error {
	e := rt.engine
	release := e.Session().Enter()
	defer release()

	e.logger.Debug("watch", "module", rt.module.ID, "specifier", specifier, "depth", e.Session().Depth())
	res, err := e.bridge.Import(specifier, rt.module, e.host.Load, rt.Entry().Options)
	if err != nil {
		return err
	}
	child := e.adopt(res)

	rt.Entry().AddChild(child)
	if err := child.Loaded(); err != nil {
		return err
	}
	if len(setters) > 0 {
		return child.AddSetters(rt.Entry(), setters...).Update()
	}
	return nil
}

// Import loads specifier on a later loop turn and resolves with its live
// namespace. Errors and panics become *ImportError rejections.
func (rt *Runtime) Import(specifier string) *loop.Future[*entry.Namespace] {
	f, resolve, reject := loop.NewFuture[*entry.Namespace]()
	rt.engine.loop.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				reject(&ImportError{Specifier: specifier, Cause: &loop.PanicError{Value: r}})
			}
		}()
		err := rt.Watch(specifier, entry.SetterPair{
			Name: entry.StarName,
			Set: func(v any, _ *entry.Entry) {
				if ns, ok := v.(*entry.Namespace); ok {
					resolve(ns)
				}
			},
		})
		if err != nil {
			rt.engine.logger.Debug("dynamic import rejected", "module", rt.module.ID, "specifier", specifier, "error", err)
			reject(&ImportError{Specifier: specifier, Cause: err})
		}
	})
	return f
}

// Require loads id synchronously. Declarative bodies may only use it in
// interop mode.
func (rt *Runtime) Require(id string) (any, error) {
	if rt.Entry().SourceType() == sourcetype.Module && !rt.Entry().Options.Interop {
		return nil, fmt.Errorf("require %q from %s: %w", id, rt.module.ID, ErrInteropDisabled)
	}
	return rt.requireFunc(rt.classicLoader()).call(id)
}

// Run executes body with the strategy matching the module's classification.
func (rt *Runtime) Run(body any) error {
	switch rt.Entry().SourceType() {
	case sourcetype.Module:
		switch b := body.(type) {
		case ModuleBody:
			return rt.runModule(b)
		case func(*Runtime) error:
			return rt.runModule(b)
		}
	case sourcetype.Script:
		switch b := body.(type) {
		case ScriptBody:
			return rt.runScript(b)
		case func(*nullobject.Object, requirefunc.Func, *host.Module) error:
			return rt.runScript(b)
		}
	}
	return fmt.Errorf("%w: %T for %s module %s", ErrUnsupportedBody, body, rt.Entry().SourceType(), rt.module.ID)
}

func (rt *Runtime) runModule(body ModuleBody) error {
	rt.module.Exports = rt.Entry().Exports()
	if err := body(rt); err != nil {
		return err
	}
	return rt.finish()
}

func (rt *Runtime) runScript(body ScriptBody) error {
	e := rt.engine
	exports, _ := rt.Entry().Exports().(*nullobject.Object)
	rt.module.Exports = exports
	req := requirefunc.Make(rt.module, rt.requireFunc(rt.classicLoader()).requirer)
	if err := body(exports, req, rt.module); err != nil {
		return err
	}

	exported := rt.module.Exports
	ent := rt.Entry().Merge(e.registry.GetWith(rt.module, exported, rt.Entry().Options))
	ent.SetExports(exported)
	ent.SetSourceType(sourcetype.Classify(exported))
	e.registry.Set(exported, ent)
	rt.entry = ent
	return rt.finish()
}

func (rt *Runtime) finish() error {
	rt.module.Loaded = true
	if err := rt.Entry().Update(); err != nil {
		return err
	}
	return rt.Entry().Loaded()
}

// classicLoader picks the load path for require: the classic path, or the
// declarative one in interop mode.
func (rt *Runtime) classicLoader() host.LoadFunc {
	if rt.Entry().Options.Interop {
		return rt.engine.host.Load
	}
	return rt.engine.host.LoadClassic
}

type requireFunc struct {
	rt   *Runtime
	load host.LoadFunc
}

func (rt *Runtime) requireFunc(load host.LoadFunc) requireFunc {
	return requireFunc{rt: rt, load: load}
}

func (r requireFunc) call(id string) (any, error) {
	return requirefunc.Make(r.rt.module, r.requirer)(id)
}

// requirer loads id and returns what a classic caller sees: the live
// namespace of a declarative child, the exports value otherwise.
func (r requireFunc) requirer(id string, parent *host.Module) (any, error) {
	e := r.rt.engine
	res, err := e.bridge.Import(id, parent, r.load, r.rt.Entry().Options)
	if err != nil {
		return nil, err
	}
	child := e.adopt(res)
	r.rt.Entry().AddChild(child)
	if child.SourceType() == sourcetype.Module {
		return child.Namespace(), nil
	}
	return res.Module.Exports, nil
}
