// Package main provides the entry point for aicfd, the LLM conversation
// memory pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/aicfd/aicfd/cmd/aicfd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
