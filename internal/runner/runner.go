// Package runner executes commands produced by the builders: external tools
// as child processes and SQL steps on the live connection.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"dbdump/internal/cleanup"
	"dbdump/internal/command"
	"dbdump/internal/database"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/logger"
	"dbdump/internal/tools"
)

// Exec is the default command runner
type Exec struct {
	log       logger.Logger
	validator *tools.Validator
	execer    database.Execer

	// Environ returns the environment child processes inherit
	Environ func() []string
}

// Option configures an Exec
type Option func(*Exec)

// WithExecer sets the connection SQL steps run on
func WithExecer(e database.Execer) Option {
	return func(r *Exec) { r.execer = e }
}

// WithValidator replaces the tool validator used by FindTool
func WithValidator(v *tools.Validator) Option {
	return func(r *Exec) { r.validator = v }
}

// New creates a runner
func New(log logger.Logger, opts ...Option) *Exec {
	r := &Exec{
		log:       log,
		validator: tools.NewValidator(log),
		Environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the steps of cmd in order, passing every chunk of combined
// process output to output. A failed step stops the chain unless it is
// marked ContinueOnFailure. Cancelling ctx interrupts the running step and
// returns a cancellation error.
func (r *Exec) Run(ctx context.Context, cmd command.Command, output func(chunk string)) error {
	if cmd.Empty() {
		return apperrors.InvalidState("command has no steps")
	}
	if output == nil {
		output = func(string) {}
	}

	for i, step := range cmd.Steps {
		if err := ctx.Err(); err != nil {
			return apperrors.Cancelled(err)
		}

		log := r.log.WithFields(map[string]interface{}{"step": i + 1, "mode": string(step.Kind)})
		log.Debug("Running step", "command", step.String())

		err := r.runStep(ctx, step, output)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return apperrors.Cancelled(ctx.Err())
		}
		if step.ContinueOnFailure {
			log.Warn("Step failed, continuing", "error", err)
			continue
		}
		return err
	}
	return nil
}

func (r *Exec) runStep(ctx context.Context, step command.Step, output func(string)) error {
	if step.IsSQL() {
		return r.runSQL(ctx, step)
	}
	return r.runProcess(ctx, step, output)
}

func (r *Exec) runSQL(ctx context.Context, step command.Step) error {
	if r.execer == nil {
		return apperrors.NoExecutor()
	}
	if _, err := r.execer.ExecContext(ctx, step.MainCommand); err != nil {
		if ctx.Err() != nil {
			return apperrors.Cancelled(ctx.Err())
		}
		return apperrors.SQLFailed(err)
	}
	return nil
}

func (r *Exec) runProcess(ctx context.Context, step command.Step, output func(string)) error {
	cmd := cleanup.SafeCommand(step.MainCommand, step.Options, step.Env.Apply(r.Environ()))

	w := &chunkWriter{output: output}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return apperrors.ToolMissing(step.MainCommand, err)
		}
		return apperrors.StartFailed(step.MainCommand, err)
	}

	err := cleanup.WaitWithContext(ctx, cmd, r.log)
	w.Flush()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return apperrors.Cancelled(ctx.Err())
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return apperrors.ProcessFailed(step.MainCommand, exitCode, w.LastLine(), err)
}

// FindTool returns the absolute path of the named tool
func (r *Exec) FindTool(ctx context.Context, name string) (string, error) {
	ts, err := r.validator.Find(ctx, name)
	if err != nil {
		return "", err
	}
	return ts.Path, nil
}

// chunkWriter forwards output in whole lines. A trailing partial line is
// held until its newline arrives or Flush is called. It also remembers the
// last non-empty line for error reports.
type chunkWriter struct {
	mu      sync.Mutex
	output  func(string)
	pending []byte
	last    string
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.pending = append(w.pending, p...)
	var chunk string
	if i := bytes.LastIndexByte(w.pending, '\n'); i >= 0 {
		chunk = string(w.pending[:i+1])
		w.pending = append(w.pending[:0], w.pending[i+1:]...)
	}
	w.emit(chunk)
	w.mu.Unlock()
	return len(p), nil
}

// Flush forwards any held partial line
func (w *chunkWriter) Flush() {
	w.mu.Lock()
	chunk := string(w.pending)
	w.pending = nil
	w.emit(chunk)
	w.mu.Unlock()
}

// emit is called with mu held so chunks keep their order
func (w *chunkWriter) emit(chunk string) {
	if chunk == "" {
		return
	}
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.last = line
		}
	}
	w.output(chunk)
}

// LastLine returns the last non-empty line forwarded
func (w *chunkWriter) LastLine() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
