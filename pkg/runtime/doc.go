// SPDX-License-Identifier: MPL-2.0

// Package runtime executes module bodies with live bindings.
//
// An [Engine] owns the Entry registry, the loader bridge and the task loop of
// one load session. Every module body runs against a [Runtime] bound to the
// module's Entry. Declarative bodies ([ModuleBody]) register exports with
// [Runtime.Export] and pull dependencies with [Runtime.Watch]; classic bodies
// ([ScriptBody]) receive an exports object and a require function and may
// replace their exports wholesale.
//
// # Circular imports
//
// [Runtime.Watch] loads the child synchronously. When the child is already
// being loaded further up the stack, the host returns the partially
// populated module instead of running its body again, so cycles terminate.
// Setters registered by Watch receive whatever bindings exist at that point
// and are called again every time the producer signals a change with
// [Runtime.Update] and when its body finishes.
//
// # Dynamic import
//
// [Runtime.Import] never resolves within the calling turn: the work is queued
// on the engine's loop and the returned future settles when the loop runs.
package runtime
