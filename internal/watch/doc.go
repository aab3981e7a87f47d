// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when any of a fixed set of files changes.
// Events are debounced so an editor's write-then-rename fires once.
package watch
