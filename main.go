package main

import (
	"os"

	"github.com/rmercer/issuepilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
