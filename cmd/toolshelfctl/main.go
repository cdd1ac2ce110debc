package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}
