package main

import (
	"os"

	"github.com/satishbabariya/loom/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
