// Package main is the entry point for ethermirror.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/ethermirror/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
