// SPDX-License-Identifier: MPL-2.0

// Package bridge connects the live-binding runtime to a host resolver and
// loader.
//
// [Bridge.Import] consults the builtin table, resolves and loads a child
// module and then applies an [EvictionPolicy] to the host caches. The host's
// own module cache and the runtime's Entry registry disagree about what "the
// same module" means across reentrant loads; the policy decides which cache
// entry to drop so that a later load does not return a stale module.
package bridge
