package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

const (
	exitOK = iota
	exitJobsFailed
	exitInvalidInput
)

// errJobsFailed is returned by run when at least one selected job failed.
var errJobsFailed = errors.New("one or more jobs failed")

func main() {
	err := newRootCmd().Execute()
	os.Exit(exitCode(err))
}

// exitCode maps command errors to the process exit status. Failed jobs exit
// with 1; every other error (manifest, config, unknown job, usage) with 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errJobsFailed):
		return exitJobsFailed
	default:
		slog.Error("buildsteps failed", "error", err)
		return exitInvalidInput
	}
}

func includeEnv() error {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		slog.Debug("no .env file found")
		return nil
	}
	slog.Debug("using .env file")
	return nil
}
