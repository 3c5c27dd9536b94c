package main

import (
	"os"

	"github.com/gotraffic/signalrl/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
