// Command lmsctl applies deploy plans to a course/exam registry and queries
// exam addresses.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cli := commandLine{
		out:    os.Stdout,
		logger: logger,
		env:    os.Environ(),
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
