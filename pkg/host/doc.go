// SPDX-License-Identifier: MPL-2.0

// Package host defines the resolver/loader collaborator contract consumed by
// the live-binding core, together with Memory, an in-memory reference host.
//
// The host model is synchronous and cache-based: loading an identity that is
// already cached returns the cached Module even while its body is still
// executing. That short-circuit is what lets circular imports terminate.
//
// Memory keeps two caches. The core cache is consulted first by Load (the
// declarative path) and the alternate cache is consulted first by
// LoadClassic (the classic require path). A freshly loaded module is stored
// in both; the loader bridge evicts it from one of them according to its
// eviction policy.
package host
