package main

import (
	"os"

	"github.com/fadilmartias/ai-grader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
