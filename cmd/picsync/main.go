// Command picsync is the image catalog synchronization CLI.
package main

import (
	"os"

	"picsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
