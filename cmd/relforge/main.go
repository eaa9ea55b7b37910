package main

import (
	"os"

	"github.com/bianoble/relforge/cmd/relforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
