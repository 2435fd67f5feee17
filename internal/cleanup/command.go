//go:build !windows
// +build !windows

package cleanup

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"dbdump/internal/logger"
)

// GracePeriod is how long an interrupted tool may take to exit before it is killed
var GracePeriod = 3 * time.Second

// SafeCommand creates an exec.Cmd in its own process group so the whole tree
// can be signalled on cancellation. env is the complete child environment.
func SafeCommand(name string, args []string, env []string) *exec.Cmd {
	cmd := exec.Command(name, args...)

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	// psql opens /dev/tty for password prompts otherwise
	cmd.Stdin = nil
	cmd.Env = append(env, "TERM=dumb")

	return cmd
}

// Interrupt sends SIGINT to the command's process group, then SIGKILL when
// it has not exited once GracePeriod elapsed. done must be closed by the
// goroutine waiting on the command.
func Interrupt(cmd *exec.Cmd, done <-chan struct{}, log logger.Logger) {
	if cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}

	log.Debug("Interrupting process", "pid", pid, "pgid", pgid)
	if err := syscall.Kill(-pgid, syscall.SIGINT); err != nil {
		log.Debug("SIGINT failed, trying SIGKILL", "error", err)
	}

	select {
	case <-done:
	case <-time.After(GracePeriod):
		log.Debug("Process didn't stop gracefully, sending SIGKILL", "pid", pid)
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
			log.Debug("SIGKILL failed", "error", err)
		}
	}
}

// WaitWithContext waits for the command to complete, interrupting its
// process group when ctx is cancelled first. On cancellation ctx.Err() is
// returned after the process exited.
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
