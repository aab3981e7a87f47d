// SPDX-License-Identifier: MPL-2.0

// Package nullobject provides a bare, ordered key/value container with no
// inherited members.
//
// Namespace snapshots, import.meta objects and the default exports object of
// a module are all NullObjects, so they cannot be confused with arbitrary Go
// values that happen to carry methods of their own.
package nullobject
