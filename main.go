package main

import (
	"os"

	"github.com/conneroisu/vuedts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
