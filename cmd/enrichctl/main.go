// Package main implements enrichctl, the operator CLI for the enrichment
// pipeline: loading the reference catalogue, building the semantic index and
// running one-off enrichments.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/carthesien/enrich/cmd/enrichctl/commands"
)

func main() {
	_ = godotenv.Load()
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
