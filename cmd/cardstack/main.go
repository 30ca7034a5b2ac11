// Command cardstack plays, replays and creates card stacks.
package main

import (
	"os"

	"github.com/phanxgames/cardstack/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
