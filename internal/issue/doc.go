// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guides
// that the CLI renders with glamour when a graph fails to load or run.
package issue
