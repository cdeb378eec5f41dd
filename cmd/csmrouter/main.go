package main

import (
	"os"

	"github.com/canne/csm-router/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
