// waybarctl - A waybar layout and style manager
//
// waybarctl switches between layout and style files, regenerates the files
// that depend on the current theme and supervises the waybar process.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"os"

	"github.com/jmylchreest/waybarctl/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
