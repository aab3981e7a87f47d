// SPDX-License-Identifier: MPL-2.0

// Package loop provides the task queue and future used for deferred work.
//
// A [Loop] runs tasks in turns: every task submitted while a turn is running
// waits for the next turn, so work scheduled from inside a task never runs
// inside the submitting call. A [Future] is settled exactly once, with a value
// or an error, and can be awaited with a context.
package loop
