// Command commandy turns a natural-language request into shell commands
// using a local llama.cpp model.
//
// Usage:
//
//	commandy list running containers
//	commandy -n 5 --json find large files
//	commandy doctor
package main

import (
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
