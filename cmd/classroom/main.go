package main

import (
	"os"

	"github.com/p-n-ai/pai-classroom/cmd/classroom/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
