// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrFileTooLarge is the sentinel wrapped by FileSizeError.
var ErrFileTooLarge = errors.New("file too large")

type (
	// ValidationError lists the problems found in a CUE document, one per
	// offending field.
	ValidationError struct {
		// FilePath is the document name.
		FilePath string
		// Issues are "<field path>: <message>" lines.
		Issues []string
		cause  error
	}

	// FileSizeError is returned for documents over the size limit.
	FileSizeError struct {
		FilePath string
		Size     int64
		Max      int64
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return fmt.Sprintf("%s: %v", e.FilePath, e.cause)
	case 1:
		return fmt.Sprintf("%s: %s", e.FilePath, e.Issues[0])
	default:
		return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(e.Issues, "\n  "))
	}
}

// Unwrap returns the underlying CUE error.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Error implements the error interface.
func (e *FileSizeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.FilePath, e.Size, e.Max)
}

// Unwrap returns ErrFileTooLarge.
func (e *FileSizeError) Unwrap() error {
	return ErrFileTooLarge
}

// FormatError turns a CUE error into a *ValidationError whose issues are
// prefixed with JSON-style field paths such as modules.a.imports[0].from.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}
	verr := &ValidationError{FilePath: filePath, cause: err}
	for _, e := range cueerrors.Errors(err) {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			msg = path + ": " + msg
		}
		verr.Issues = append(verr.Issues, msg)
	}
	return verr
}

// formatPath renders ["modules", "a", "imports", "0"] as modules.a.imports[0].
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns a *FileSizeError when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if size := int64(len(data)); size > maxSize {
		return &FileSizeError{FilePath: filename, Size: size, Max: maxSize}
	}
	return nil
}
