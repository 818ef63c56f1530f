// Package main is the entry point for the scorecloud CLI.
package main

import "github.com/scorecloud/scorecloud-cli/internal/cli"

func main() {
	cli.Execute()
}
