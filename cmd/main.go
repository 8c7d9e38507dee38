package main

import (
	"os"

	"github.com/trujjo/neurotome/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
