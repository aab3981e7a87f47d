// SPDX-License-Identifier: MPL-2.0

package host

import (
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
)

// DefaultExtensions are probed, in order, when a specifier does not name a
// defined source exactly.
var DefaultExtensions = []string{".mjs", ".js"}

type (
	// Memory is an in-memory host: sources are registered with Define and
	// executed through the configured Executor.
	Memory struct {
		mu         sync.Mutex
		sources    map[string]any
		loads      map[string]int
		extensions []string
		core       *Cache
		alternate  *Cache
		exec       Executor
		logger     *slog.Logger
	}

	// MemoryOption configures a Memory host.
	MemoryOption func(*Memory)
)

// WithExtensions replaces the probed extensions.
func WithExtensions(exts ...string) MemoryOption {
	return func(m *Memory) {
		m.extensions = slices.Clone(exts)
	}
}

// WithExecutor sets the executor used to run module bodies.
func WithExecutor(exec Executor) MemoryOption {
	return func(m *Memory) {
		m.exec = exec
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMemory creates an empty in-memory host.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		sources:    make(map[string]any),
		loads:      make(map[string]int),
		extensions: slices.Clone(DefaultExtensions),
		core:       NewCache(CoreCache),
		alternate:  NewCache(AlternateCache),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetExecutor replaces the executor used to run module bodies.
func (m *Memory) SetExecutor(exec Executor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exec = exec
}

// Define registers body under id. The id is cleaned the same way resolved
// specifiers are, so "./a.mjs" and "a.mjs" name the same source.
func (m *Memory) Define(id string, body any) error {
	id = cleanID(id)
	if id == "" || id == "." {
		return fmt.Errorf("define module: empty identity")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sources[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, id)
	}
	m.sources[id] = body
	return nil
}

// IDs returns the defined identities in sorted order.
func (m *Memory) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Core returns the core cache.
func (m *Memory) Core() *Cache { return m.core }

// Alternate returns the alternate cache.
func (m *Memory) Alternate() *Cache { return m.alternate }

// LoadCount returns how many times the body of id has been executed.
func (m *Memory) LoadCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[cleanID(id)]
}

// ResolveIdentity resolves specifier against the parent's identity. Relative
// specifiers ("./x", "../x") are joined with the parent's directory; other
// specifiers are taken as identities. When no source matches exactly, the
// configured extensions are probed in order.
func (m *Memory) ResolveIdentity(specifier string, parent *Module, _ bool) (string, error) {
	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	if strings.TrimSpace(specifier) == "" {
		return "", &ResolutionError{Specifier: specifier, Parent: parentID}
	}

	base := specifier
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		dir := "."
		if parent != nil {
			dir = path.Dir(parent.ID)
		}
		base = path.Join(dir, specifier)
	}
	base = cleanID(base)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[base]; ok {
		return base, nil
	}
	for _, ext := range m.extensions {
		if _, ok := m.sources[base+ext]; ok {
			return base + ext, nil
		}
	}
	return "", &ResolutionError{Specifier: specifier, Parent: parentID}
}

// Load loads identity through the declarative path (core cache first).
func (m *Memory) Load(identity string, parent *Module, isMain bool, opts Options) (*Module, error) {
	return m.load(identity, parent, isMain, opts, m.core, m.alternate)
}

// LoadClassic loads identity through the classic path (alternate cache first).
func (m *Memory) LoadClassic(identity string, parent *Module, isMain bool, opts Options) (*Module, error) {
	return m.load(identity, parent, isMain, opts, m.alternate, m.core)
}

// Evict removes identity from the selected cache.
func (m *Memory) Evict(kind CacheKind, identity string) bool {
	switch kind {
	case CoreCache:
		return m.core.Delete(identity)
	case AlternateCache:
		return m.alternate.Delete(identity)
	default:
		return false
	}
}

func (m *Memory) load(identity string, parent *Module, isMain bool, opts Options, first, second *Cache) (*Module, error) {
	identity = cleanID(identity)
	for _, c := range []*Cache{first, second} {
		if cached, ok := c.Get(identity); ok {
			m.logger.Debug("module cache hit", "id", identity, "cache", c.Kind().String(), "loaded", cached.Loaded)
			parent.addChild(cached)
			return cached, nil
		}
	}

	m.mu.Lock()
	body, ok := m.sources[identity]
	exec := m.exec
	if ok {
		m.loads[identity]++
	}
	m.mu.Unlock()

	if !ok {
		parentID := ""
		if parent != nil {
			parentID = parent.ID
		}
		return nil, &ResolutionError{Specifier: identity, Parent: parentID}
	}
	if exec == nil {
		return nil, ErrNoExecutor
	}

	mod := &Module{
		ID:       identity,
		Filename: identity,
		IsMain:   isMain,
		Parent:   parent,
		Options:  opts,
	}
	parent.addChild(mod)
	m.core.Set(mod)
	m.alternate.Set(mod)

	m.logger.Debug("executing module", "id", identity, "main", isMain)
	if err := exec(mod, body); err != nil {
		m.core.Delete(identity)
		m.alternate.Delete(identity)
		return nil, err
	}
	return mod, nil
}

func cleanID(id string) string {
	if id == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(id), "./")
}
