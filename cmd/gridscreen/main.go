// Package main provides the entry point for the gridscreen CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/gridscreen/cmd/gridscreen/commands"
	"github.com/Sumatoshi-tech/gridscreen/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
