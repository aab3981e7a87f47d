// SPDX-License-Identifier: MPL-2.0

package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

const (
	// CoreCache is the cache consulted first by the declarative load path.
	CoreCache CacheKind = iota
	// AlternateCache is the cache consulted first by the classic load path.
	AlternateCache
)

var (
	// ErrModuleNotFound is the sentinel wrapped by ResolutionError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDuplicateModule is returned when a source identity is defined twice.
	ErrDuplicateModule = errors.New("module already defined")
	// ErrNoExecutor is returned when a host has no executor to run module bodies.
	ErrNoExecutor = errors.New("no module executor configured")
)

type (
	// Options carries loader options through every load of a session.
	Options struct {
		// Interop lets declarative bodies use the classic require function and
		// routes classic loads through the declarative load path.
		Interop bool
	}

	// Module is the host's record of a loaded module.
	Module struct {
		// ID is the canonical module identity.
		ID string
		// Filename is the location the module was loaded from.
		Filename string
		// Exports is the module's current exports value. Classic bodies may
		// replace it wholesale.
		Exports any
		// Loaded is set once the body has finished executing.
		Loaded bool
		// IsMain marks the entry point of a load session.
		IsMain bool
		// Parent is the module that first loaded this one (nil for the entry point).
		Parent *Module
		// Children lists modules first loaded by this one, without duplicates.
		Children []*Module
		// Options are the options the module was loaded with.
		Options Options
	}

	// Resolver maps a specifier, relative to a parent, to a module identity.
	Resolver interface {
		ResolveIdentity(specifier string, parent *Module, isMain bool) (string, error)
	}

	// LoadFunc loads the module with the given identity. Implementations must
	// return the cached, possibly partially populated, Module when the
	// identity is already being loaded.
	LoadFunc func(identity string, parent *Module, isMain bool, opts Options) (*Module, error)

	// Executor runs a module body for a freshly created Module.
	Executor func(mod *Module, body any) error

	// CacheKind selects one of a host's module caches.
	CacheKind int

	// ResolutionError is returned when a specifier cannot be resolved.
	// It wraps ErrModuleNotFound for errors.Is() compatibility.
	ResolutionError struct {
		Specifier string
		Parent    string
	}
)

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("cannot find module %q", e.Specifier)
	}
	return fmt.Sprintf("cannot find module %q imported from %s", e.Specifier, e.Parent)
}

// Unwrap returns ErrModuleNotFound.
func (e *ResolutionError) Unwrap() error {
	return ErrModuleNotFound
}

// String returns the cache name.
func (k CacheKind) String() string {
	switch k {
	case CoreCache:
		return "core"
	case AlternateCache:
		return "alternate"
	default:
		return fmt.Sprintf("cache(%d)", int(k))
	}
}

// addChild records child under m unless it is already listed.
func (m *Module) addChild(child *Module) {
	if m == nil || child == nil || slices.Contains(m.Children, child) {
		return
	}
	m.Children = append(m.Children, child)
}

// Cache maps module identities to Modules.
type Cache struct {
	kind    CacheKind
	mu      sync.Mutex
	modules map[string]*Module
}

// NewCache creates an empty cache of the given kind.
func NewCache(kind CacheKind) *Cache {
	return &Cache{kind: kind, modules: make(map[string]*Module)}
}

// Kind returns the cache kind.
func (c *Cache) Kind() CacheKind {
	return c.kind
}

// Get returns the Module cached under id.
func (c *Cache) Get(id string) (*Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.modules[id]
	return m, ok
}

// Set caches m under its ID.
func (c *Cache) Set(m *Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[m.ID] = m
}

// Delete removes id from the cache and reports whether it was present.
func (c *Cache) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.modules[id]
	delete(c.modules, id)
	return ok
}

// Has reports whether id is cached.
func (c *Cache) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

// IDs returns the cached identities in sorted order.
func (c *Cache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.modules))
	for id := range c.modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
