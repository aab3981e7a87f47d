// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"log/slog"

	"github.com/invowk/livebind/pkg/builtin"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/sourcetype"
)

type (
	// Host is the resolver and loader collaborator.
	Host interface {
		host.Resolver
		Load(identity string, parent *host.Module, isMain bool, opts host.Options) (*host.Module, error)
		LoadClassic(identity string, parent *host.Module, isMain bool, opts host.Options) (*host.Module, error)
		Evict(kind host.CacheKind, identity string) bool
	}

	// Bridge loads child modules for the runtime.
	Bridge struct {
		host     Host
		registry *entry.Registry
		builtins *builtin.Table
		policy   EvictionPolicy
		session  *Session
		logger   *slog.Logger
	}

	// Option configures a Bridge.
	Option func(*Bridge)

	// Result is a loaded child.
	Result struct {
		// Module is the child's host module.
		Module *host.Module
		// Entry is set for builtins, whose Entry is prebuilt.
		Entry *entry.Entry
		// Builtin reports whether the builtin table served the child.
		Builtin bool
		// Evicted is the cache entry the policy dropped.
		Evicted EvictionTarget
	}
)

// WithBuiltins sets the builtin table consulted before the host.
func WithBuiltins(t *builtin.Table) Option {
	return func(b *Bridge) { b.builtins = t }
}

// WithPolicy replaces the eviction policy.
func WithPolicy(p EvictionPolicy) Option {
	return func(b *Bridge) {
		if p != nil {
			b.policy = p
		}
	}
}

// WithSession sets the session whose depth is passed to the policy.
func WithSession(s *Session) Option {
	return func(b *Bridge) {
		if s != nil {
			b.session = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bridge over h that registers builtin Entries in registry.
func New(h Host, registry *entry.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		host:     h,
		registry: registry,
		policy:   DefaultPolicy(),
		session:  NewSession(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session returns the bridge's load session.
func (b *Bridge) Session() *Session {
	return b.session
}

// Host returns the host collaborator.
func (b *Bridge) Host() Host {
	return b.host
}

// Import returns the child module for specifier relative to parent. A
// builtin is returned with its Entry and the host is never consulted.
// Otherwise the specifier is resolved and loaded with load (the host's
// declarative Load when nil); resolver and loader errors are returned
// unchanged.
func (b *Bridge) Import(specifier string, parent *host.Module, load host.LoadFunc, opts host.Options) (*Result, error) {
	return b.importModule(specifier, parent, false, load, opts)
}

// Main loads specifier as the entry point of a load session.
func (b *Bridge) Main(specifier string, opts host.Options) (*Result, error) {
	return b.importModule(specifier, nil, true, nil, opts)
}

func (b *Bridge) importModule(specifier string, parent *host.Module, isMain bool, load host.LoadFunc, opts host.Options) (*Result, error) {
	if bi, ok := b.builtins.Lookup(specifier); ok {
		b.logger.Debug("builtin module", "specifier", specifier)
		return &Result{Module: bi.Module, Entry: b.registry.Adopt(bi.Entry), Builtin: true}, nil
	}

	identity, err := b.host.ResolveIdentity(specifier, parent, isMain)
	if err != nil {
		return nil, err
	}
	if load == nil {
		load = b.host.Load
	}
	child, err := load(identity, parent, isMain, opts)
	if err != nil {
		return nil, err
	}

	kind := sourcetype.Classify(child.Exports)
	target := b.policy(child, kind, opts, b.session.Depth())
	if cache, ok := target.CacheKind(); ok {
		evicted := b.host.Evict(cache, child.ID)
		b.logger.Debug("cache eviction", "module", child.ID, "kind", kind.String(), "cache", cache.String(), "evicted", evicted)
	}
	return &Result{Module: child, Evicted: target}, nil
}
