package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		exitCode := 1
		var coded *exitCodeError
		if errors.As(err, &coded) {
			exitCode = coded.code
		}
		os.Exit(exitCode)
	}
}

// exitCodeError carries a specific process exit code for scripted
// callers, such as the drain check.
type exitCodeError struct {
	code    int
	message string
}

func (e *exitCodeError) Error() string { return e.message }
