package main

import (
	"os"

	"github.com/kwonalbert/secure_channel/cmd/sc_host/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
