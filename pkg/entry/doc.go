// SPDX-License-Identifier: MPL-2.0

// Package entry implements the per-module record behind live bindings.
//
// An Entry owns a module's exported bindings (name -> Getter), the setters
// other modules registered to be told about those bindings, the module's
// source classification and its child graph. Bindings are pull-based: a
// Getter reads the current value of a variable every time it is called.
// Subscribers are push-based: Update reads every subscribed binding and
// hands the value to the subscriber's setter.
//
// # Propagation
//
// Update is a synchronous wave. It runs the setters registered on the
// updated Entry; when a setter changes the state of the Entry that
// registered it (new names copied by an `export *` setter, or a different
// value delivered to a named import), that Entry is queued and its own
// setters run in turn. The wave stops once no subscriber observes anything
// new. Name sets only grow, so `export *` cycles converge; a wave that keeps
// producing new values past the configured step bound fails with
// CycleNonTerminationError rather than spinning.
//
// # Identity
//
// Registry keeps exactly one Entry per module identity and remembers which
// Entry owns a given exports value. When two Entries turn out to describe the
// same module they are merged: the survivor absorbs getters, subscribers and
// children, and the merged-away Entry forwards later mutations to it.
package entry
