// Package main is the entry point for the taxi-ingest binary.
package main

import (
	"os"

	cli "taxi-ingest/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
