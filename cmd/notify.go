package cmd

import (
	"fmt"
	"time"

	"dbdump/internal/logger"
	"dbdump/internal/notify"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Test notification integrations",
	Long: `Send a test notification to the configured webhook to verify
configuration and connectivity before a real run depends on it.

Examples:
  dbdump notify test --notify-webhook-url https://hooks.example.com/dbdump
  dbdump notify test --message "Hello from dbdump"`,
}

var testNotifyCmd = &cobra.Command{
	Use:   "test",
	Short: "Send test notification",
	Args:  cobra.NoArgs,
	RunE:  runNotifyTest,
}

var notifyMessage string

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(testNotifyCmd)

	testNotifyCmd.Flags().StringVar(&notifyMessage, "message", "", "Custom test message")
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if cfg.NotifyWebhookURL == "" {
		fmt.Fprintln(out, "[WARN] No webhook configured")
		fmt.Fprintln(out, "Configure one with --notify-webhook-url or DBDUMP_NOTIFY_WEBHOOK_URL")
		return nil
	}

	message := notifyMessage
	if message == "" {
		message = fmt.Sprintf("Test notification from dbdump at %s", time.Now().Format(time.RFC3339))
	}

	nc := cfg.NotifyConfig()
	nc.MinSeverity = notify.SeverityInfo
	manager := notify.NewManager(nc)

	event := notify.NewEvent(notify.EventToolFound, notify.SeverityInfo, message).
		WithDetail("test", "true").
		WithDetail("command", "dbdump notify test")

	log.Debug("Sending test notification", "webhook", cfg.NotifyWebhookURL, "notifiers", manager.EnabledNotifiers())
	if err := manager.NotifySync(cmd.Context(), event); err != nil {
		logger.Failure(out, "Notification failed: %v", err)
		return err
	}
	logger.Success(out, "Notification sent to %s", cfg.NotifyWebhookURL)
	return nil
}
