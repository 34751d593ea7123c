// Command nflow loads a node tree from TOML and inspects it.
//
//	nflow --seed market.toml tree
//	nflow --seed market.toml find 'lua:data.price > 10'
//	nflow --seed market.toml set btc price 43
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
