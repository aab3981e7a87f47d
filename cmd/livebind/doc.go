// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the livebind CLI. Commands load a module graph file,
// link it through the live-binding engine and report what every importer
// observed.
package cmd
