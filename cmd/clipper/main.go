package main

import (
	"os"

	"github.com/flarebyte/clipper/cmd/clipper/root"
	"github.com/flarebyte/clipper/internal/fault"
)

type exitCoder interface {
	ExitCode() int
}

func main() {
	if err := root.Execute(os.Args[1:]); err != nil {
		// Print a short, single-line error to stderr on failures.
		// Do not print usage or stack traces.
		_, _ = os.Stderr.WriteString(fault.Message(err) + "\n")
		code := 1
		if ec, ok := err.(exitCoder); ok {
			if c := ec.ExitCode(); c != 0 {
				code = c
			}
		}
		os.Exit(code)
	}
}
