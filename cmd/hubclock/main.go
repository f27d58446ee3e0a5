// Package main is the entrypoint for the hubclock command.
// It runs the live Hub clock in the terminal or formats a single value.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aelexs/hubclock/internal/errmap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(errmap.ToExitCode(err))
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(stdin, stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
