// Package cmd implements the dbdump command line
package cmd

import (
	"context"
	"sync"

	"dbdump/internal/config"
	"dbdump/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log logger.Logger

	flagsOnce sync.Once
	binders   []func()
)

var rootCmd = &cobra.Command{
	Use:   "dbdump",
	Short: "Build and run database backup and restore commands",
	Long: `dbdump turns a declarative job file into the exact invocation of
pg_dump, pg_restore, psql, mysqldump, mariadb-dump, mysql, sqlite3 or a
native SQL Server BACKUP/RESTORE statement, runs it and streams its output.

A job file names the connection and the settings to apply over the
engine defaults:

  connection:
    engine: postgresql
    host: db.internal
    user: app
    database: app
  job:
    format: directory
    jobs: 4

Examples:
  # Show the command a backup would run
  dbdump plan --job app.yaml

  # Run the backup
  dbdump backup --job app.yaml

  # Restore into another database
  dbdump restore --job app.yaml --set inputFile=/backups/app.dump --set database=app_copy`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.NoColor {
			color.NoColor = true
		}
		log = cfg.Logger()
		return nil
	},
}

// Execute runs the command line with the given configuration and logger
func Execute(ctx context.Context, c *config.Config, l logger.Logger) error {
	cfg = c
	log = l
	flagsOnce.Do(func() {
		bindPersistentFlags()
		for _, bind := range binders {
			bind()
		}
	})
	return rootCmd.ExecuteContext(ctx)
}

// onExecute defers flag registration until cfg holds the defaults
func onExecute(bind func()) {
	binders = append(binders, bind)
}

func bindPersistentFlags() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfg.JobPath, "job", "j", cfg.JobPath, "Job file (YAML with connection and job sections)")
	f.StringVar(&cfg.Engine, "engine", cfg.Engine, "Engine key, overrides the job file (postgresql, mysql, mariadb, sqlite, sqlserver)")
	f.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "Default output directory for backups")
	f.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "Directory for scratch log files (default: system temp)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	f.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	f.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")
	f.StringVar(&cfg.NotifyWebhookURL, "notify-webhook-url", cfg.NotifyWebhookURL, "Webhook receiving run notifications")
	f.StringVar(&cfg.NotifyWebhookSecret, "notify-webhook-secret", cfg.NotifyWebhookSecret, "Secret used to sign webhook payloads")
	f.StringVar(&cfg.NotifyMinSeverity, "notify-min-severity", cfg.NotifyMinSeverity, "Lowest severity sent (info, success, warning, error)")
}
