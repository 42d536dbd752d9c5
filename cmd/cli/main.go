package main

import (
	"os"

	"github.com/transitly/transitly/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
