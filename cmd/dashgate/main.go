// Package main is the entry point for the dashgate application.
package main

import (
	"os"

	"github.com/jmylchreest/dashgate/cmd/dashgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
