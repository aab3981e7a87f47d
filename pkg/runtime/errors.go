// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrDynamicImport is the sentinel wrapped by ImportError.
	ErrDynamicImport = errors.New("dynamic import failed")
	// ErrUnsupportedBody is returned for module bodies of an unknown shape or
	// a shape that does not match the module's classification.
	ErrUnsupportedBody = errors.New("unsupported module body")
	// ErrInteropDisabled is returned by Runtime.Require when the engine does
	// not run in interop mode.
	ErrInteropDisabled = errors.New("require is only available to declarative modules in interop mode")
)

// ImportError is the rejection value of a failed dynamic import.
type ImportError struct {
	Specifier string
	Cause     error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return fmt.Sprintf("dynamic import of %q failed: %v", e.Specifier, e.Cause)
}

// Is reports ErrDynamicImport as a match.
func (e *ImportError) Is(target error) bool {
	return target == ErrDynamicImport
}

// Unwrap returns the underlying cause.
func (e *ImportError) Unwrap() error {
	return e.Cause
}
