package main

import (
	"os"

	"github.com/overdrive-dev/overdrive/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
