// Package main provides the curator CLI for running sweeps and inspecting the catalog by hand.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
