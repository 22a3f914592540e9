package main

import (
	"os"

	"github.com/sightlab/visionbench/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
