//go:build windows
// +build windows

package cleanup

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"dbdump/internal/logger"
)

// GracePeriod is unused on Windows, where processes are killed directly
var GracePeriod = 3 * time.Second

// SafeCommand creates an exec.Cmd with the given environment
func SafeCommand(name string, args []string, env []string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.Env = env
	return cmd
}

// Interrupt kills the command
func Interrupt(cmd *exec.Cmd, done <-chan struct{}, log logger.Logger) {
	if cmd.Process == nil {
		return
	}
	log.Debug("Terminating process", "pid", cmd.Process.Pid)
	if err := cmd.Process.Kill(); err != nil {
		log.Debug("Kill failed", "error", err)
	}
}

// WaitWithContext waits for the command to complete, handling context cancellation properly.
func WaitWithContext(ctx context.Context, cmd *exec.Cmd, log logger.Logger) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}

	cmdDone := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		cmdDone <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-cmdDone:
		return err
	case <-ctx.Done():
		Interrupt(cmd, exited, log)
		<-exited
		return ctx.Err()
	}
}
