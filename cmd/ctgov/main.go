package main

import (
	"os"

	"github.com/ctgov/compliance/cmd/ctgov/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
