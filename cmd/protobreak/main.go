package main

import (
	"os"

	"github.com/bianoble/protobreak/cmd/protobreak/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
