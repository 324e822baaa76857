package main

import (
	"os"

	"github.com/conclave-ai/conclave/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
