package main

import (
	"os"

	"github.com/pathakanu/mediping/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
