package main

import (
	"os"

	"github.com/langlearn/langlearn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
