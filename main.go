// dbdump builds and runs database backup and restore commands.
package main

import (
	"context"
	"os"

	"dbdump/cmd"
	"dbdump/internal/config"
	"dbdump/internal/exitcode"
	"dbdump/internal/logger"
)

// Build information (set by ldflags)
var (
	version   = "0.4.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cfg := config.New()

	cfg.Version = version
	cfg.BuildTime = buildTime
	cfg.GitCommit = gitCommit

	log := cfg.Logger()

	if err := cmd.Execute(context.Background(), cfg, log); err != nil {
		logger.Failure(os.Stderr, "%v", err)
		os.Exit(exitcode.ExitWithCode(err))
	}
}
