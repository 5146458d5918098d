package main

import (
	"fmt"
	"os"

	"github.com/ecovision/mantaview/cmd"
	"github.com/ecovision/mantaview/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	info := &buildinfo.Context{
		Version:   version,
		BuildDate: buildDate,
	}

	if err := cmd.RootCommand(info).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
