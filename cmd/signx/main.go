package main

import (
	"os"

	"github.com/MrEthical07/signx/cmd/signx/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
