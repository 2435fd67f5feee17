package cmd

import (
	"errors"
	"fmt"

	"dbdump/internal/builder"
	"dbdump/internal/cleanup"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/logger"
	"dbdump/internal/notify"

	"github.com/spf13/cobra"
)

// runFlags are the flags of backup and restore
type runFlags struct {
	jobFlags
	dryRun   bool
	findTool bool
	keepLog  bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	f.jobFlags.register(cmd, false)
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the command without running it")
	cmd.Flags().BoolVar(&f.findTool, "find-tool", cfg.FindTool, "Locate the dump tool on PATH before running")
	cmd.Flags().BoolVar(&f.keepLog, "keep-log", false, "Keep the scratch log file after a successful run")
}

var (
	backupFlags  runFlags
	restoreFlags runFlags
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run the backup described by a job file",
	Long: `Build the backup command for the job and run it, streaming the
tool's output. The full raw output is kept in a scratch log file.

Examples:
  dbdump backup --job app.yaml
  dbdump backup --job app.yaml --set format=directory --set jobs=4
  dbdump backup --job app.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, builder.ModeBackup, &backupFlags)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Run the restore described by a job file",
	Long: `Build the restore command for the job and run it.

Examples:
  dbdump restore --job app.yaml --set inputFile=/backups/app_20260101_020000.dump
  dbdump restore --job shop.yaml --set inputFile=shop.sql --set database=shop_copy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, builder.ModeRestore, &restoreFlags)
	},
}

func init() {
	rootCmd.AddCommand(backupCmd, restoreCmd)
	onExecute(func() {
		backupFlags.register(backupCmd)
		restoreFlags.register(restoreCmd)
	})
}

func runJob(cmd *cobra.Command, mode builder.Mode, flags *runFlags) error {
	handler := cleanup.NewHandler(cmd.Context(), log)
	handler.Listen()
	defer handler.Shutdown()
	ctx := handler.Context()

	jc, err := openJob(ctx, mode, &flags.jobFlags, false, !flags.dryRun)
	if err != nil {
		return err
	}
	handler.Register("database", cleanup.Closer(jc.Close))
	b := jc.builder
	handler.OnInterrupt(func() { b.CancelCommand() })

	manager := notify.NewManager(cfg.NotifyConfig())
	handler.Register("notifications", cleanup.Waiter(manager.Wait))
	b.SetNotificationCallback(func(ev *notify.Event) {
		log.Debug("Notification", "type", ev.Type, "message", ev.Message)
		manager.Notify(ev)
	})

	if flags.findTool && b.Config().DumpToolPath == "" {
		if err := b.FindDumpTool(ctx, !flags.dryRun); err != nil {
			return err
		}
	}

	built, err := b.BuildCommand()
	if err != nil {
		return err
	}
	if flags.dryRun {
		for _, step := range built.Steps {
			fmt.Fprintln(cmd.OutOrStdout(), step.String())
		}
		return nil
	}

	out := cmd.ErrOrStderr()
	b.SetLogCallback(func(line string) { logger.Line(out, line) })
	log.Info("Running command", "engine", b.Engine(), "mode", string(mode), "command", built.String())

	err = b.RunCommand(ctx)
	switch {
	case err == nil:
		logger.Success(cmd.OutOrStdout(), "%s finished", title(mode))
		if !flags.keepLog {
			if derr := b.DeleteLogFile(); derr != nil {
				log.Warn("Failed to delete log file", "path", b.LogPath(), "error", derr)
			}
		}
		return nil
	case apperrors.IsCancelled(err):
		logger.Cancelled(cmd.OutOrStdout(), "%s cancelled, output kept in %s", title(mode), b.LogPath())
	default:
		logger.Failure(cmd.OutOrStdout(), "%s failed, full output in %s", title(mode), b.LogPath())
	}
	if remediation := remediationOf(err); remediation != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), remediation)
	}
	return err
}

func title(mode builder.Mode) string {
	if mode == builder.ModeRestore {
		return "Restore"
	}
	return "Backup"
}

func remediationOf(err error) string {
	var be *apperrors.BackupError
	if errors.As(err, &be) {
		return be.Remediation
	}
	return ""
}
