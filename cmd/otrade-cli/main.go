package main

import (
	"os"

	"github.com/otrade-bot/server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
