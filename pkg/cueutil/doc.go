// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Every CUE input livebind reads (the configuration file and module graph
// files) goes through the same steps: compile the schema, compile the user
// document, unify it with a schema definition, validate and decode the result
// into a Go value. Errors carry the document name and the path of the
// offending field.
//
//	//go:embed graph_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[File](schema, data, "#Graph",
//	    cueutil.WithFilename("graph.cue"))
package cueutil
