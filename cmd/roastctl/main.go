package main

import (
	"os"

	"github.com/negraodenio/roast/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
