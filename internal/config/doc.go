// SPDX-License-Identifier: MPL-2.0

// Package config handles livebind configuration using Viper with CUE as the
// file format.
//
// Configuration is read from config.cue in the platform configuration
// directory (~/.config/livebind on Linux, ~/Library/Application Support/livebind
// on macOS, %APPDATA%\livebind on Windows), then from ./config.cue, and is
// validated against the embedded config_schema.cue. Every key can be
// overridden with a LIVEBIND_* environment variable, dots replaced by
// underscores (LIVEBIND_PROPAGATION_MAX_STEPS).
package config
