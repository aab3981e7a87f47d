// SPDX-License-Identifier: MPL-2.0

package graphfile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/invowk/livebind/pkg/cueutil"
)

const (
	// FormatCUE is the CUE graph format.
	FormatCUE Format = "cue"
	// FormatTOML is the TOML graph format.
	FormatTOML Format = "toml"
	// FormatYAML is the YAML graph format.
	FormatYAML Format = "yaml"
	// FormatHCL is the HCL graph format.
	FormatHCL Format = "hcl"

	// KindModule marks a declarative module.
	KindModule = "module"
	// KindScript marks a classic module.
	KindScript = "script"
)

var (
	//go:embed graph_schema.cue
	graphSchema []byte

	// ErrUnknownFormat is returned for files whose extension names no format.
	ErrUnknownFormat = errors.New("unknown graph file format")
	// ErrInvalidGraph is wrapped by every graph validation failure.
	ErrInvalidGraph = errors.New("invalid module graph")
)

type (
	// Format is a graph file encoding.
	Format string

	// File is a decoded graph file.
	File struct {
		Entry   string            `json:"entry" toml:"entry" yaml:"entry"`
		Interop bool              `json:"interop,omitempty" toml:"interop" yaml:"interop"`
		Modules map[string]Module `json:"modules" toml:"modules" yaml:"modules"`
	}

	// Module describes one module of the graph.
	Module struct {
		// Kind is KindModule (default) or KindScript.
		Kind string `json:"kind,omitempty" toml:"kind" yaml:"kind"`
		// Exports are the module's named bindings and their initial values.
		Exports map[string]any `json:"exports,omitempty" toml:"exports" yaml:"exports"`
		// Default is the default export. A classic module replaces its
		// exports with it wholesale.
		Default any `json:"default,omitempty" toml:"default" yaml:"default"`
		// Imports are named imports.
		Imports []Import `json:"imports,omitempty" toml:"imports" yaml:"imports"`
		// Namespaces are whole-namespace imports.
		Namespaces []string `json:"namespaces,omitempty" toml:"namespaces" yaml:"namespaces"`
		// Reexport lists modules re-exported with export *.
		Reexport []string `json:"reexport,omitempty" toml:"reexport" yaml:"reexport"`
		// Requires are synchronous classic requires.
		Requires []string `json:"requires,omitempty" toml:"requires" yaml:"requires"`
		// Dynamic are deferred imports.
		Dynamic []string `json:"dynamic,omitempty" toml:"dynamic" yaml:"dynamic"`
		// Assign are reassignments of exported bindings, run in order after
		// the imports, each followed by an update.
		Assign []Assignment `json:"assign,omitempty" toml:"assign" yaml:"assign"`
	}

	// Import is a named import.
	Import struct {
		From  string   `json:"from" toml:"from" yaml:"from"`
		Names []string `json:"names" toml:"names" yaml:"names"`
	}

	// Assignment reassigns an exported binding.
	Assignment struct {
		Name  string `json:"name" toml:"name" yaml:"name"`
		Value any    `json:"value" toml:"value" yaml:"value"`
	}
)

// FormatOf returns the format for a file name.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		return FormatCUE, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}
}

// Load reads and parses the graph file at path.
func Load(path string) (*Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format, filepath.Base(path))
}

// Parse decodes data in the given format and validates the graph.
func Parse(data []byte, format Format, filename string) (*Graph, error) {
	var f File
	switch format {
	case FormatCUE:
		res, err := cueutil.ParseAndDecode[File](graphSchema, data, "#Graph", cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		f = *res.Value
	case FormatTOML:
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	case FormatYAML:
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	case FormatHCL:
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		decoded, err := decodeHCL(data, filename)
		if err != nil {
			return nil, err
		}
		f = *decoded
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	f.normalize()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return newGraph(&f), nil
}

// normalize turns decoder-specific numbers and maps into int, float64,
// []any and map[string]any, and fills in default kinds.
func (f *File) normalize() {
	for name, m := range f.Modules {
		if m.Kind == "" {
			m.Kind = KindModule
		}
		for k, v := range m.Exports {
			m.Exports[k] = normalizeValue(v)
		}
		m.Default = normalizeValue(m.Default)
		for i := range m.Assign {
			m.Assign[i].Value = normalizeValue(m.Assign[i].Value)
		}
		f.Modules[name] = m
	}
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int32:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
