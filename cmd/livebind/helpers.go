// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"reflect"
	"slices"
)

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func sortStrings(s []string) []string {
	slices.Sort(s)
	return s
}
