package main

import (
	"os"

	"spacebook/cmd/spacectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
