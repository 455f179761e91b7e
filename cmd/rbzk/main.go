// Command rbzk is a CLI collaborator for the rbzk ZKTeco client library: it
// wires cobra subcommands onto the library's connection and renders results
// as tables, per spec.md §6.
package main

import "github.com/shqear93/rbzk/cmd/rbzk/cmd"

func main() {
	cmd.Execute()
}
