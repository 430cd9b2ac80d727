package main

import (
	"os"

	"sessionkit/cmd/sessionkit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
