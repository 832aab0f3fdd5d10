// Package main provides the filechange CLI application.
//
// filechange registers interest in files and directories and prints change
// notifications as they are delivered. It is a host for the watch engine and
// a way to inspect its state.
package main

import (
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
