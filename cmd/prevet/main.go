package main

import (
	"os"

	"github.com/MSB-Labs/prevet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
