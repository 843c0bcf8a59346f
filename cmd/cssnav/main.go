// # cmd/cssnav/main.go
package main

import (
	"os"
)

const VERSION = "0.1.0"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
