package main

import (
	"os"

	"github.com/guiyumin/mediahub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
