package main

import (
	"os"

	"github.com/devicepulse/devicepulse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
