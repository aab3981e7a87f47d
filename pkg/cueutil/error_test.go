// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "graph.cue") != nil {
		t.Error("FormatError(nil) != nil")
	}

	cause := errors.New("some error")
	err := FormatError(cause, "graph.cue")
	if !errors.Is(err, cause) {
		t.Errorf("FormatError() does not wrap the cause: %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.FilePath != "graph.cue" {
		t.Fatalf("FormatError() = %T, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "graph.cue") || !strings.Contains(err.Error(), "some error") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"entry"}, "entry"},
		{[]string{"modules", "a", "kind"}, "modules.a.kind"},
		{[]string{"modules", "a", "imports", "0", "from"}, "modules.a.imports[0].from"},
		{[]string{"0", "x"}, "0.x"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a.cue"); err != nil {
		t.Errorf("CheckFileSize() at limit error = %v", err)
	}
	err := CheckFileSize(make([]byte, 11), 10, "a.cue")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("CheckFileSize() error = %v, want ErrFileTooLarge", err)
	}
	var ferr *FileSizeError
	if !errors.As(err, &ferr) || ferr.Size != 11 || ferr.Max != 10 {
		t.Errorf("FileSizeError = %+v", ferr)
	}
}
