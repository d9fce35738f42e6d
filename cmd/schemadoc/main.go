// Package main provides the schemadoc CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/schemadoc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
