// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"

	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/sourcetype"
)

const (
	// DefaultName is the synthetic binding holding a module's default export.
	DefaultName = "default"
	// StarName subscribes a setter to a module's whole namespace.
	StarName = "*"
	// DefaultMaxSteps bounds the number of Entry visits in one propagation wave.
	DefaultMaxSteps = 10000
)

type (
	// Entry is the per-module record behind live bindings.
	Entry struct {
		// ID is the module identity.
		ID string
		// URL is surfaced to the running module as its meta url.
		URL string
		// Options are the loader options the module was first loaded with.
		Options host.Options

		module     *host.Module
		exports    any
		sourceType sourcetype.Type
		getters    map[string]*Getter
		local      map[string]bool
		names      []string
		subs       []*subscription
		children   map[string]*Entry
		childOrder []string
		loaded     bool
		version    uint64
		mergedInto *Entry
		ns         *Namespace
		maxSteps   int
		logger     *slog.Logger
	}

	// Setter receives the current value of a subscribed binding. For the
	// StarName subscription the value is the producer's *Namespace. from is
	// the producing Entry.
	Setter func(value any, from *Entry)

	// SetterPair subscribes Set to the binding Name.
	SetterPair struct {
		Name string
		Set  Setter
	}

	// Option configures an Entry.
	Option func(*Entry)

	subscription struct {
		name      string
		set       Setter
		parent    *Entry
		delivered bool
		last      any
		snapshot  []namedValue
		cancelled bool
	}

	// namedValue is one initialized binding as last delivered to a StarName
	// subscriber.
	namedValue struct {
		name  string
		value any
	}
)

// WithMaxSteps bounds propagation waves started from the Entry.
func WithMaxSteps(n int) Option {
	return func(e *Entry) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entry) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Entry for the module identity id.
func New(id string, opts ...Option) *Entry {
	e := &Entry{
		ID:       id,
		URL:      FileURL(id),
		getters:  make(map[string]*Getter),
		local:    make(map[string]bool),
		children: make(map[string]*Entry),
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileURL renders a module filename as a file URL.
func FileURL(filename string) string {
	if filename == "" {
		return ""
	}
	p := filename
	if p[0] != '/' {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// Current returns e itself, or the Entry e was merged into.
func (e *Entry) Current() *Entry {
	for e != nil && e.mergedInto != nil {
		e = e.mergedInto
	}
	return e
}

// Module returns the host module backing the Entry, if any.
func (e *Entry) Module() *host.Module {
	return e.Current().module
}

// SetModule attaches mod to the Entry.
func (e *Entry) SetModule(mod *host.Module) {
	e = e.Current()
	e.module = mod
	if mod != nil && e.URL == "" {
		e.URL = FileURL(mod.Filename)
	}
}

// Exports returns the module's current exports value.
func (e *Entry) Exports() any {
	return e.Current().exports
}

// SetExports records the module's current exports value.
func (e *Entry) SetExports(v any) {
	e = e.Current()
	if !identical(e.exports, v) {
		e.exports = v
		e.version++
	}
}

// SourceType returns the module's classification.
func (e *Entry) SourceType() sourcetype.Type {
	return e.Current().sourceType
}

// SetSourceType records the module's classification.
func (e *Entry) SetSourceType(t sourcetype.Type) {
	e.Current().sourceType = t
}

// IsLoaded reports whether the module body has finished executing.
func (e *Entry) IsLoaded() bool {
	return e.Current().loaded
}

// Names returns the exported names in registration order, including
// uninitialized ones.
func (e *Entry) Names() []string {
	e = e.Current()
	e.syncScript()
	return slices.Clone(e.names)
}

// Getter returns the getter registered under name.
func (e *Entry) Getter(name string) (*Getter, bool) {
	e = e.Current()
	e.syncScript()
	g, ok := e.getters[name]
	return g, ok
}

// Namespace returns the Entry's live namespace view.
func (e *Entry) Namespace() *Namespace {
	e = e.Current()
	if e.ns == nil {
		e.ns = &Namespace{entry: e}
	}
	return e.ns
}

// AddGetters registers exported bindings. Registering the getter already
// present under a name is a no-op; registering a different one under a name
// this module defined itself fails with *DuplicateExportError. A local
// binding replaces one inherited through AddGettersFrom.
func (e *Entry) AddGetters(bindings ...Binding) error {
	e = e.Current()
	for _, b := range bindings {
		if b.Getter == nil {
			return fmt.Errorf("%w: %s in module %s", ErrNilGetter, b.Name, e.ID)
		}
		existing, ok := e.getters[b.Name]
		switch {
		case !ok:
			e.names = append(e.names, b.Name)
		case existing == b.Getter:
			e.local[b.Name] = true
			continue
		case e.local[b.Name]:
			return &DuplicateExportError{Module: e.ID, Name: b.Name}
		}
		e.getters[b.Name] = b.Getter
		e.local[b.Name] = true
		e.version++
	}
	return nil
}

// AddGettersFrom copies every binding of child that e does not already have,
// except the default binding, and returns how many were copied. It only reads
// names child currently has, so repeated calls during an `export *` cycle
// grow both tables until they converge.
func (e *Entry) AddGettersFrom(child *Entry) int {
	e, child = e.Current(), child.Current()
	if child == nil || child == e {
		return 0
	}
	child.syncScript()
	added := 0
	for _, name := range child.names {
		if name == DefaultName {
			continue
		}
		if _, ok := e.getters[name]; ok {
			continue
		}
		e.getters[name] = child.getters[name]
		e.names = append(e.names, name)
		added++
	}
	if added > 0 {
		e.version++
	}
	return added
}

// AddSetters subscribes pairs on behalf of parent, which may be nil for
// subscribers that are not modules. It returns e for chaining into Update.
func (e *Entry) AddSetters(parent *Entry, pairs ...SetterPair) *Entry {
	e = e.Current()
	for _, p := range pairs {
		if p.Set == nil {
			continue
		}
		e.subs = append(e.subs, &subscription{name: p.Name, set: p.Set, parent: parent})
	}
	return e
}

// AddChild records child as a dependency of e. Adding the same child
// identity again is a no-op.
func (e *Entry) AddChild(child *Entry) {
	e, child = e.Current(), child.Current()
	if child == nil {
		return
	}
	if _, ok := e.children[child.ID]; !ok {
		e.childOrder = append(e.childOrder, child.ID)
	}
	e.children[child.ID] = child
}

// Children returns the child Entries in first-import order.
func (e *Entry) Children() []*Entry {
	e = e.Current()
	out := make([]*Entry, 0, len(e.childOrder))
	for _, id := range e.childOrder {
		out = append(out, e.children[id].Current())
	}
	return out
}

// Merge folds other into e and returns the surviving Entry. Getters already
// present in e win, subscribers and children are unioned and other forwards
// every later call to e. Merging an Entry that is already part of e is a
// no-op.
func (e *Entry) Merge(other *Entry) *Entry {
	e, other = e.Current(), other.Current()
	if other == nil || other == e {
		return e
	}
	for _, name := range other.names {
		if _, ok := e.getters[name]; ok {
			continue
		}
		e.getters[name] = other.getters[name]
		e.local[name] = other.local[name]
		e.names = append(e.names, name)
	}
	e.pruneCancelled()
	for _, s := range other.subs {
		if !s.cancelled && !slices.Contains(e.subs, s) {
			e.subs = append(e.subs, s)
		}
	}
	for _, id := range other.childOrder {
		if _, ok := e.children[id]; !ok {
			e.childOrder = append(e.childOrder, id)
			e.children[id] = other.children[id]
		}
	}
	if e.sourceType == sourcetype.Unknown {
		e.sourceType = other.sourceType
	}
	if e.exports == nil {
		e.exports = other.exports
	}
	if e.module == nil {
		e.module = other.module
	}
	if e.URL == "" {
		e.URL = other.URL
	}
	e.loaded = e.loaded || other.loaded
	e.version++
	other.mergedInto = e
	e.logger.Debug("merged entries", "module", e.ID, "from", other.ID)
	return e
}

// Fork returns a new Entry configured with opts that shares e's bindings and
// metadata but none of its subscribers or children.
func (e *Entry) Fork(opts ...Option) *Entry {
	e = e.Current()
	f := New(e.ID, opts...)
	f.URL = e.URL
	f.Options = e.Options
	f.module = e.module
	f.exports = e.exports
	f.sourceType = e.sourceType
	f.loaded = e.loaded
	f.names = slices.Clone(e.names)
	f.getters = maps.Clone(e.getters)
	f.local = maps.Clone(e.local)
	return f
}

// syncScript exposes every key of a classic module's exports object as a live
// binding, plus the whole exports value as the default binding.
func (e *Entry) syncScript() {
	if e.sourceType != sourcetype.Script {
		return
	}
	if _, ok := e.getters[DefaultName]; !ok {
		e.addLocal(DefaultName, NewGetter(func() (any, bool) {
			return e.Current().exports, true
		}))
	}
	for _, key := range objectKeys(e.exports) {
		if _, ok := e.getters[key]; ok {
			continue
		}
		e.addLocal(key, NewGetter(func() (any, bool) {
			return objectGet(e.Current().exports, key)
		}))
	}
}

func (e *Entry) addLocal(name string, g *Getter) {
	e.getters[name] = g
	e.local[name] = true
	e.names = append(e.names, name)
	e.version++
}

func objectKeys(v any) []string {
	switch o := v.(type) {
	case *nullobject.Object:
		return o.Keys()
	case map[string]any:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys
	default:
		return nil
	}
}

func objectGet(v any, key string) (any, bool) {
	switch o := v.(type) {
	case *nullobject.Object:
		return o.Get(key)
	case map[string]any:
		val, ok := o[key]
		return val, ok
	default:
		return nil, false
	}
}
