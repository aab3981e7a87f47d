// SPDX-License-Identifier: MPL-2.0

// Package sourcetype classifies how a module's code was authored, judging
// only by the shape of its exports value.
package sourcetype

import "fmt"

const (
	// Unknown is reported for a nil exports value.
	Unknown Type = iota
	// Module is a declarative module: bindings are registered through the runtime.
	Module
	// Script is a classic module: bindings are the keys of its exports value.
	Script
)

type (
	// Type is the source classification of a module.
	Type int

	// moduleMarker is implemented by exports objects that can carry the
	// declarative-module mark (see nullobject.Object.MarkModule).
	moduleMarker interface {
		IsModule() bool
	}
)

// Classify returns the source type implied by an exports value.
func Classify(exports any) Type {
	if exports == nil {
		return Unknown
	}
	if m, ok := exports.(moduleMarker); ok && m.IsModule() {
		return Module
	}
	return Script
}

// String returns the lowercase name of the type.
func (t Type) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case Module:
		return "module"
	case Script:
		return "script"
	default:
		return fmt.Sprintf("sourcetype(%d)", int(t))
	}
}

// Parse converts a name produced by String back into a Type.
func Parse(s string) (Type, error) {
	switch s {
	case "unknown", "":
		return Unknown, nil
	case "module":
		return Module, nil
	case "script":
		return Script, nil
	default:
		return Unknown, fmt.Errorf("unknown source type %q", s)
	}
}
