// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/repoindex/cmd/repoindex"

func main() {
	cmd.Execute()
}
