// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/livebind/cmd/livebind"

func main() {
	cmd.Execute()
}
