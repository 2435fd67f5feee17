//go:build !windows
// +build !windows

package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/logger"
	"dbdump/internal/tools"

	"github.com/DATA-DOG/go-sqlmock"
)

type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) add(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func shell(script string, env command.Env) command.Step {
	return command.Process("sh", []string{"-c", script}, env)
}

func newTestRunner(opts ...Option) *Exec {
	r := New(logger.NewNullLogger(), opts...)
	r.Environ = func() []string { return []string{"PATH=/usr/bin:/bin", "KEEP=1", "DROP=1"} }
	return r
}

func TestRunStreamsCombinedOutput(t *testing.T) {
	var out collector
	err := newTestRunner().Run(context.Background(),
		command.New(shell("echo to-stdout; echo to-stderr 1>&2", nil)), out.add)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.text()
	if !strings.Contains(text, "to-stdout") || !strings.Contains(text, "to-stderr") {
		t.Errorf("output = %q", text)
	}
}

func TestChunkWriterHoldsPartialLines(t *testing.T) {
	var out collector
	w := &chunkWriter{output: out.add}

	writes := []string{"pg_dump: read", "ing schemas\npg_dump: dump", "ing table\n", "pg_dump: done"}
	for _, s := range writes {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()
	w.Flush()

	want := []string{"pg_dump: reading schemas\n", "pg_dump: dumping table\n", "pg_dump: done"}
	if strings.Join(out.chunks, "|") != strings.Join(want, "|") {
		t.Errorf("chunks = %q, want %q", out.chunks, want)
	}
	if w.LastLine() != "pg_dump: done" {
		t.Errorf("LastLine() = %q", w.LastLine())
	}
}

func TestRunJoinsLinesSplitAcrossWrites(t *testing.T) {
	var out collector
	err := newTestRunner().Run(context.Background(),
		command.New(shell("printf 'half'; sleep 0.2; printf ' line\\ntail'", nil)), out.add)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.chunks) != 2 || out.chunks[0] != "half line\n" || out.chunks[1] != "tail" {
		t.Errorf("chunks = %q", out.chunks)
	}
}

func TestRunAppliesEnvironment(t *testing.T) {
	env := command.Env{}
	env.Set("ADDED", "yes")
	env.Unset("DROP")

	var out collector
	err := newTestRunner().Run(context.Background(),
		command.New(shell(`echo "added=$ADDED keep=$KEEP drop=${DROP-unset}"`, env)), out.add)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.text()); got != "added=yes keep=1 drop=unset" {
		t.Errorf("output = %q", got)
	}
}

func TestRunChainsOnSuccess(t *testing.T) {
	var out collector
	cmd := command.New(shell("echo first", nil), shell("echo second", nil))
	if err := newTestRunner().Run(context.Background(), cmd, out.add); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.text()
	if strings.Index(text, "first") > strings.Index(text, "second") {
		t.Errorf("steps ran out of order: %q", text)
	}
}

func TestRunStopsChainOnFailure(t *testing.T) {
	var out collector
	cmd := command.New(shell("echo boom 1>&2; exit 3", nil), shell("echo never", nil))

	err := newTestRunner().Run(context.Background(), cmd, out.add)
	if !apperrors.IsProcessFailure(err) {
		t.Fatalf("err = %v, want process failure", err)
	}
	var be *apperrors.BackupError
	if !errors.As(err, &be) || be.ExitCode != 3 || be.Details != "boom" {
		t.Errorf("unexpected error details: %+v", be)
	}
	if strings.Contains(out.text(), "never") {
		t.Error("post step ran after a failure")
	}
}

func TestRunContinueOnFailure(t *testing.T) {
	first := shell("exit 1", nil)
	first.ContinueOnFailure = true

	var out collector
	if err := newTestRunner().Run(context.Background(), command.New(first, shell("echo after", nil)), out.add); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.text(), "after") {
		t.Error("second step did not run")
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	err := newTestRunner().Run(ctx, command.New(shell("sleep 30", nil)), nil)
	if !apperrors.IsCancelled(err) {
		t.Errorf("err = %v, want cancellation", err)
	}
}

func TestRunMissingProgram(t *testing.T) {
	err := newTestRunner().Run(context.Background(),
		command.New(command.Process("/nonexistent/pg_dump", nil, nil)), nil)
	if apperrors.GetCode(err) != apperrors.ErrCodeToolMissing {
		t.Errorf("err = %v, want tool missing", err)
	}
}

func TestRunSQLStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`BACKUP DATABASE \[app\]`).WillReturnResult(sqlmock.NewResult(0, 0))

	r := newTestRunner(WithExecer(db))
	if err := r.Run(context.Background(), command.New(command.SQL("BACKUP DATABASE [app] TO DISK = N'/x.bak'")), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunSQLFailureStopsChain(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("BACKUP DATABASE").WillReturnError(errors.New("permission denied"))

	var out collector
	cmd := command.New(command.SQL("BACKUP DATABASE [app] TO DISK = N'/x.bak'"), shell("echo copied", nil))
	err = newTestRunner(WithExecer(db)).Run(context.Background(), cmd, out.add)
	if apperrors.GetCode(err) != apperrors.ErrCodeSQLFailed {
		t.Errorf("err = %v, want SQL failure", err)
	}
	if strings.Contains(out.text(), "copied") {
		t.Error("copy step ran after SQL failure")
	}
}

func TestRunSQLWithoutExecer(t *testing.T) {
	err := newTestRunner().Run(context.Background(), command.New(command.SQL("SELECT 1")), nil)
	if apperrors.GetCode(err) != apperrors.ErrCodeNoExecutor {
		t.Errorf("err = %v", err)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	if err := newTestRunner().Run(context.Background(), command.Command{}, nil); err == nil {
		t.Error("empty command should fail")
	}
}

func TestFindTool(t *testing.T) {
	v := tools.NewValidator(logger.NewNullLogger())
	v.LookPathFunc = func(file string) (string, error) { return "/opt/bin/" + file, nil }
	v.VersionFunc = nil

	path, err := newTestRunner(WithValidator(v)).FindTool(context.Background(), "sqlite3")
	if err != nil || path != "/opt/bin/sqlite3" {
		t.Errorf("FindTool = %q, %v", path, err)
	}
}
