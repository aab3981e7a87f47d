// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"fmt"
	"path"
	"slices"

	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/sourcetype"
)

const (
	// EvictNone leaves both caches alone.
	EvictNone EvictionTarget = iota
	// EvictAlternate drops the child from the classic path's cache.
	EvictAlternate
	// EvictCore drops the child from the declarative path's cache.
	EvictCore
)

// DefaultAlternateExtensions are the extensions whose declarative modules
// are evicted from the alternate cache by DefaultPolicy.
var DefaultAlternateExtensions = []string{".mjs"}

type (
	// EvictionTarget names the cache entry a policy wants dropped.
	EvictionTarget int

	// EvictionPolicy decides which cache entry to drop after child was
	// loaded with the given classification, options and session depth.
	EvictionPolicy func(child *host.Module, kind sourcetype.Type, opts host.Options, depth int) EvictionTarget
)

// String returns the target name.
func (t EvictionTarget) String() string {
	switch t {
	case EvictNone:
		return "none"
	case EvictAlternate:
		return "alternate"
	case EvictCore:
		return "core"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// CacheKind maps the target to the host cache it drops from.
func (t EvictionTarget) CacheKind() (host.CacheKind, bool) {
	switch t {
	case EvictAlternate:
		return host.AlternateCache, true
	case EvictCore:
		return host.CoreCache, true
	default:
		return 0, false
	}
}

// DefaultPolicy evicts declarative children whose filename has one of exts
// from the alternate cache unless interop is on, and evicts classic children
// from the core cache. With no exts, DefaultAlternateExtensions are used.
func DefaultPolicy(exts ...string) EvictionPolicy {
	if len(exts) == 0 {
		exts = DefaultAlternateExtensions
	}
	exts = slices.Clone(exts)
	return func(child *host.Module, kind sourcetype.Type, opts host.Options, _ int) EvictionTarget {
		switch kind {
		case sourcetype.Module:
			if !opts.Interop && slices.Contains(exts, path.Ext(child.Filename)) {
				return EvictAlternate
			}
			return EvictNone
		case sourcetype.Script:
			return EvictCore
		default:
			return EvictNone
		}
	}
}

// Never is a policy that keeps every cache entry.
func Never(*host.Module, sourcetype.Type, host.Options, int) EvictionTarget {
	return EvictNone
}
