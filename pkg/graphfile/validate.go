// SPDX-License-Identifier: MPL-2.0

package graphfile

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the graph for problems every decoder lets through.
func (f *File) Validate() error {
	var errs []error
	if f.Entry == "" {
		errs = append(errs, errors.New("entry is required"))
	} else if _, ok := f.Modules[f.Entry]; !ok {
		errs = append(errs, fmt.Errorf("entry module %q is not defined", f.Entry))
	}

	for _, name := range sortedKeys(f.Modules) {
		m := f.Modules[name]
		if name == "" {
			errs = append(errs, errors.New("module with empty name"))
			continue
		}
		switch m.Kind {
		case KindModule:
			for _, a := range m.Assign {
				if _, ok := m.Exports[a.Name]; !ok {
					errs = append(errs, fmt.Errorf("modules.%s: assign to %q, which is not exported", name, a.Name))
				}
			}
		case KindScript:
			if len(m.Imports)+len(m.Namespaces)+len(m.Reexport)+len(m.Dynamic)+len(m.Assign) > 0 {
				errs = append(errs, fmt.Errorf("modules.%s: script modules only support exports, default and requires", name))
			}
		default:
			errs = append(errs, fmt.Errorf("modules.%s: unknown kind %q", name, m.Kind))
		}
		for i, imp := range m.Imports {
			if imp.From == "" || len(imp.Names) == 0 || slices.Contains(imp.Names, "") {
				errs = append(errs, fmt.Errorf("modules.%s.imports[%d]: from and non-empty names are required", name, i))
			}
		}
		for _, list := range [][]string{m.Namespaces, m.Reexport, m.Requires, m.Dynamic} {
			if slices.Contains(list, "") {
				errs = append(errs, fmt.Errorf("modules.%s: empty specifier", name))
				break
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
}
