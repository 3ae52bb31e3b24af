package main

import (
	"os"

	"github.com/homevalai/homeval/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
