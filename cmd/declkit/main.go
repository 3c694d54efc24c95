package main

import (
	"os"

	"github.com/declkit/declkit/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
