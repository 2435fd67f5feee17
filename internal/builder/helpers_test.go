package builder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/notify"

	"github.com/spf13/afero"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

const stamp = "20260304_050607"

// fakeRunner records commands and replays canned output
type fakeRunner struct {
	mu      sync.Mutex
	cmds    []command.Command
	chunks  []string
	err     error
	block   bool
	started chan struct{}
	output  func(string)
	tools   map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}), tools: map[string]string{}}
}

func (f *fakeRunner) Run(ctx context.Context, cmd command.Command, output func(string)) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.output = output
	chunks, err, block := f.chunks, f.err, f.block
	f.mu.Unlock()

	for _, c := range chunks {
		output(c)
	}
	if block {
		close(f.started)
		<-ctx.Done()
		return apperrors.Cancelled(ctx.Err())
	}
	return err
}

func (f *fakeRunner) FindTool(_ context.Context, name string) (string, error) {
	if p, ok := f.tools[name]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

// engineUnderTest names the embedded field so it does not shadow
// the promoted Engine method
type engineUnderTest = Engine

var _ Builder = (*testEngine)(nil)

type testEngine struct {
	*engineUnderTest
	runner *fakeRunner
	fs     afero.Fs
	lines  []string
	events []*notify.Event
	mu     sync.Mutex
}

func (te *testEngine) eventTypes() []notify.EventType {
	te.mu.Lock()
	defer te.mu.Unlock()
	var out []notify.EventType
	for _, e := range te.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T, key string, mode Mode, conn job.Connection) *testEngine {
	t.Helper()
	f, ok := Lookup(key)
	if !ok {
		t.Fatalf("no family for %q", key)
	}
	driver := f.Backup()
	if mode == ModeRestore {
		driver = f.Restore()
	}
	if conn.Engine == "" {
		conn.Engine = f.Key
	}

	te := &testEngine{runner: newFakeRunner(), fs: afero.NewMemMapFs()}
	te.engineUnderTest = NewEngine(f.Key, driver, conn,
		WithRunner(te.runner),
		WithFs(te.fs),
		WithWorkDir("/work"),
		WithOutputDir("/backups"),
		WithClock(func() time.Time { return fixedNow }),
	)
	te.SetLogCallback(func(line string) {
		te.mu.Lock()
		te.lines = append(te.lines, line)
		te.mu.Unlock()
	})
	te.SetNotificationCallback(func(e *notify.Event) {
		te.mu.Lock()
		te.events = append(te.events, e)
		te.mu.Unlock()
	})
	return te
}

func mustBuild(t *testing.T, b Builder) command.Command {
	t.Helper()
	cmd, err := b.BuildCommand()
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	return cmd
}

func mustSet(t *testing.T, b Builder, p job.Patch) {
	t.Helper()
	if err := b.SetConfig(p); err != nil {
		t.Fatalf("SetConfig(%v): %v", p, err)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
