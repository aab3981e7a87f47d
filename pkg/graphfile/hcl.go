// SPDX-License-Identifier: MPL-2.0

package graphfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

type (
	// hclFile is the HCL shape of a graph file:
	//
	//	entry = "main"
	//
	//	module "main" {
	//	  import {
	//	    from  = "./a"
	//	    names = ["a"]
	//	  }
	//	}
	//
	//	module "a" {
	//	  exports = { a = 1 }
	//	  assign {
	//	    name  = "a"
	//	    value = 2
	//	  }
	//	}
	hclFile struct {
		Entry   string      `hcl:"entry"`
		Interop *bool       `hcl:"interop,optional"`
		Modules []hclModule `hcl:"module,block"`
	}

	hclModule struct {
		Name       string      `hcl:"name,label"`
		Kind       *string     `hcl:"kind,optional"`
		Exports    cty.Value   `hcl:"exports,optional"`
		Default    cty.Value   `hcl:"default,optional"`
		Namespaces []string    `hcl:"namespaces,optional"`
		Reexport   []string    `hcl:"reexport,optional"`
		Requires   []string    `hcl:"requires,optional"`
		Dynamic    []string    `hcl:"dynamic,optional"`
		Imports    []hclImport `hcl:"import,block"`
		Assign     []hclAssign `hcl:"assign,block"`
	}

	hclImport struct {
		From  string   `hcl:"from"`
		Names []string `hcl:"names"`
	}

	hclAssign struct {
		Name  string    `hcl:"name"`
		Value cty.Value `hcl:"value"`
	}
)

func decodeHCL(data []byte, filename string) (*File, error) {
	parsed, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", filename, diags)
	}
	var raw hclFile
	if diags := gohcl.DecodeBody(parsed.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", filename, diags)
	}

	f := &File{Entry: raw.Entry, Modules: make(map[string]Module, len(raw.Modules))}
	if raw.Interop != nil {
		f.Interop = *raw.Interop
	}
	for _, hm := range raw.Modules {
		if _, dup := f.Modules[hm.Name]; dup {
			return nil, fmt.Errorf("%s: %w: module %q declared twice", filename, ErrInvalidGraph, hm.Name)
		}
		m, err := hm.module()
		if err != nil {
			return nil, fmt.Errorf("%s: module %q: %w", filename, hm.Name, err)
		}
		f.Modules[hm.Name] = m
	}
	return f, nil
}

func (hm hclModule) module() (Module, error) {
	m := Module{
		Namespaces: hm.Namespaces,
		Reexport:   hm.Reexport,
		Requires:   hm.Requires,
		Dynamic:    hm.Dynamic,
	}
	if hm.Kind != nil {
		m.Kind = *hm.Kind
	}

	exports, err := ctyToNative(hm.Exports)
	if err != nil {
		return Module{}, fmt.Errorf("exports: %w", err)
	}
	if exports != nil {
		obj, ok := exports.(map[string]any)
		if !ok {
			return Module{}, fmt.Errorf("exports must be an object, got %s", hm.Exports.Type().FriendlyName())
		}
		m.Exports = obj
	}
	if m.Default, err = ctyToNative(hm.Default); err != nil {
		return Module{}, fmt.Errorf("default: %w", err)
	}

	for _, imp := range hm.Imports {
		m.Imports = append(m.Imports, Import(imp))
	}
	for _, a := range hm.Assign {
		v, err := ctyToNative(a.Value)
		if err != nil {
			return Module{}, fmt.Errorf("assign %s: %w", a.Name, err)
		}
		m.Assign = append(m.Assign, Assignment{Name: a.Name, Value: v})
	}
	return m, nil
}

// ctyToNative converts a cty value into the plain values the other decoders
// produce. Whole numbers become int64 so normalize turns them into int.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
