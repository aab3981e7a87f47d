// SPDX-License-Identifier: MPL-2.0

// Package logging builds the slog.Logger shared by the engine and the CLI.
// Records are rendered by charmbracelet/log in text, JSON or logfmt form.
package logging
