// SPDX-License-Identifier: MPL-2.0

// Package builtin holds modules that are served without going through the
// resolver and loader.
package builtin

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/sourcetype"
)

// ErrDuplicateBuiltin is returned when a name is registered twice.
var ErrDuplicateBuiltin = errors.New("builtin already registered")

type (
	// Table maps specifiers to prebuilt modules. A Table may be shared by
	// several engines: each registry adopts its own fork of a builtin's Entry,
	// so subscribers and propagation options never cross engines.
	Table struct {
		mu      sync.RWMutex
		modules map[string]*Builtin
	}

	// Builtin is a prebuilt module and its Entry.
	Builtin struct {
		Module *host.Module
		Entry  *entry.Entry
	}
)

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{modules: make(map[string]*Builtin)}
}

// Register adds a builtin whose bindings are the keys of exports, plus a
// default binding holding exports itself.
func (t *Table) Register(name string, exports *nullobject.Object) error {
	if name == "" {
		return fmt.Errorf("register builtin: empty name")
	}
	mod := &host.Module{ID: name, Exports: exports, Loaded: true}
	e := entry.New(name)
	e.URL = "builtin:" + name
	e.SetModule(mod)
	e.SetExports(exports)
	e.SetSourceType(sourcetype.Script)
	if err := e.Loaded(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.modules[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBuiltin, name)
	}
	t.modules[name] = &Builtin{Module: mod, Entry: e}
	return nil
}

// Lookup returns the builtin registered under specifier.
func (t *Table) Lookup(specifier string) (*Builtin, bool) {
	if t == nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.modules[specifier]
	return b, ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.modules))
	for name := range t.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Default returns a table with the path and strings builtins.
func Default() *Table {
	t := NewTable()
	for name, exports := range map[string]*nullobject.Object{
		"path":    pathModule(),
		"strings": stringsModule(),
	} {
		if err := t.Register(name, exports); err != nil {
			panic(err)
		}
	}
	return t
}

func pathModule() *nullobject.Object {
	return nullobject.FromMap(map[string]any{
		"sep":      "/",
		"join":     func(elem ...string) string { return path.Join(elem...) },
		"dirname":  path.Dir,
		"basename": path.Base,
		"extname":  path.Ext,
		"isAbsolute": func(p string) bool {
			return path.IsAbs(p)
		},
	})
}

func stringsModule() *nullobject.Object {
	return nullobject.FromMap(map[string]any{
		"toUpper":  strings.ToUpper,
		"toLower":  strings.ToLower,
		"trim":     strings.TrimSpace,
		"split":    strings.Split,
		"join":     strings.Join,
		"repeat":   strings.Repeat,
		"contains": strings.Contains,
	})
}
