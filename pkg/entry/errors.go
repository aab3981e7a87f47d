// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateExport is the sentinel wrapped by DuplicateExportError.
	ErrDuplicateExport = errors.New("duplicate export")
	// ErrCycleNonTermination is the sentinel wrapped by CycleNonTerminationError.
	ErrCycleNonTermination = errors.New("binding propagation did not converge")
	// ErrNilGetter is returned when a binding is registered without a getter.
	ErrNilGetter = errors.New("nil getter")
)

type (
	// DuplicateExportError is returned when a module registers two different
	// getters under the same exported name.
	DuplicateExportError struct {
		Module string
		Name   string
	}

	// CycleNonTerminationError is returned when a propagation wave exceeds
	// its step bound.
	CycleNonTerminationError struct {
		Module string
		Steps  int
	}
)

// Error implements the error interface.
func (e *DuplicateExportError) Error() string {
	return fmt.Sprintf("duplicate export %q in module %s", e.Name, e.Module)
}

// Unwrap returns ErrDuplicateExport.
func (e *DuplicateExportError) Unwrap() error {
	return ErrDuplicateExport
}

// Error implements the error interface.
func (e *CycleNonTerminationError) Error() string {
	return fmt.Sprintf("binding propagation from module %s did not converge after %d steps", e.Module, e.Steps)
}

// Unwrap returns ErrCycleNonTermination.
func (e *CycleNonTerminationError) Unwrap() error {
	return ErrCycleNonTermination
}
