package main

import (
	"os"

	"github.com/bgdnvk/stackpilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
