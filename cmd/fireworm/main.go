// Package main provides the entry point for the fireworm CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/fireworm/cmd/fireworm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
