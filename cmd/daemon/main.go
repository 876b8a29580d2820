package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// exitError carries a non-zero fx exit code out of the run command
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("daemon exited with code %d", e.code)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(1)
	}
}
