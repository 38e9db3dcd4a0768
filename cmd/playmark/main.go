package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/runnerr0/playmark/internal/cli"
)

var version = "dev"

func main() {
	// A missing .env is normal; only explicit environment matters then.
	_ = godotenv.Load()

	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
