package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/logfile"
	"dbdump/internal/logger"
	"dbdump/internal/notify"
	"dbdump/internal/runner"
	"dbdump/internal/settings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Engine implements Builder for one engine family and mode
type Engine struct {
	key    string
	driver Driver
	conn   job.Connection

	runner    Runner
	log       logger.Logger
	fs        afero.Fs
	logFile   *logfile.File
	workDir   string
	outputDir string
	now       func() time.Time

	mu       sync.Mutex
	cfg      job.Config
	running  bool
	failed   bool
	cancel   context.CancelFunc
	onLog    func(line string)
	onNotify func(event *notify.Event)
}

var _ Builder = (*Engine)(nil)

// Option configures an Engine
type Option func(*Engine)

// WithRunner sets the runner used for commands and tool discovery
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithFs sets the filesystem for the scratch log and output files
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithWorkDir sets the directory of the scratch log file
func WithWorkDir(dir string) Option {
	return func(e *Engine) { e.workDir = dir }
}

// WithOutputDir sets the default backup directory
func WithOutputDir(dir string) Option {
	return func(e *Engine) { e.outputDir = dir }
}

// WithClock sets the time source used for generated file names
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a builder for key backed by driver. Engine defaults
// are applied here, once.
func NewEngine(key string, driver Driver, conn job.Connection, opts ...Option) *Engine {
	e := &Engine{
		key:    key,
		driver: driver,
		conn:   conn,
		log:    logger.NewNullLogger(),
		fs:     afero.NewOsFs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.runner == nil {
		e.runner = runner.New(e.log)
	}
	if e.workDir == "" {
		e.workDir = os.TempDir()
	}
	if e.outputDir == "" {
		e.outputDir = defaultOutputDir()
	}
	e.log = e.log.WithFields(map[string]interface{}{"engine": key, "mode": string(driver.Mode())})
	e.logFile = logfile.New(e.fs, e.workDir)
	e.cfg = e.defaults()
	return e
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "db_backups")
}

func (e *Engine) defaults() job.Config {
	return e.driver.Defaults(e.conn, e.outputDir, e.now())
}

// Engine returns the engine key the builder was created for
func (e *Engine) Engine() string { return e.key }

// Mode returns backup or restore
func (e *Engine) Mode() Mode { return e.driver.Mode() }

// Connection returns the connection the builder was created with
func (e *Engine) Connection() job.Connection { return e.conn }

// SupportedFeatures reports the optional capabilities of the engine
func (e *Engine) SupportedFeatures() Features { return e.driver.Features() }

// SettingsSections returns the settings schema. It never changes the configuration.
func (e *Engine) SettingsSections() settings.Schema { return e.driver.Sections() }

// Config returns a copy of the current configuration
func (e *Engine) Config() job.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// SetConfig merges p into the configuration and runs the change hooks of
// the edited controls. An empty patch resets to defaults but keeps the tool.
func (e *Engine) SetConfig(p job.Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(p) == 0 {
		e.cfg = e.cfg.SoftReset(e.defaults())
		return nil
	}

	merged, err := e.cfg.Merge(p)
	if err != nil {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			"invalid settings patch", "Use the setting names listed by the settings schema").WithCause(err)
	}

	changed := make([]string, 0, len(p))
	for k := range p {
		changed = append(changed, k)
	}
	sort.Strings(changed)

	next := e.driver.Sections().ApplyChanges(merged, changed)
	if _, named := p["fileName"]; !named {
		from, to := e.cfg.TargetDatabase(e.conn), next.TargetDatabase(e.conn)
		if from != to {
			next.FileName = job.RetargetFileName(next.FileName, from, to)
		}
	}
	e.cfg = next
	return nil
}

// UpdateConfig lets fn edit the configuration in place. Change hooks do not run.
func (e *Engine) UpdateConfig(fn func(cfg *job.Config)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.cfg)
}

// BuildCommand validates the configuration and returns the command to run.
// It performs no I/O.
func (e *Engine) BuildCommand() (command.Command, error) {
	e.mu.Lock()
	cfg := e.cfg.Clone()
	e.mu.Unlock()
	return e.build(cfg)
}

func (e *Engine) build(cfg job.Config) (command.Command, error) {
	var result *multierror.Error
	for _, p := range e.driver.Sections().Validate(cfg) {
		result = multierror.Append(result, fmt.Errorf("%s: %s", p.SettingName, p.Message))
	}
	if err := result.ErrorOrNil(); err != nil {
		return command.Command{}, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			"job configuration is invalid", "Fix the listed settings and try again").WithCause(err)
	}
	return e.driver.Build(cfg, e.conn)
}

// ProcessLog splits a raw output chunk into log lines
func (e *Engine) ProcessLog(chunk string) []string {
	return e.driver.SplitLog(chunk)
}

// FindDumpTool looks the dump tool up and stores its path. A missing tool
// is logged and, when announce is set, reported as a notification; it is
// not returned as an error.
func (e *Engine) FindDumpTool(ctx context.Context, announce bool) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return apperrors.InvalidState("tool discovery is not allowed while a command is running")
	}
	tool := e.driver.Tool(e.cfg)
	e.mu.Unlock()

	if tool == "" {
		e.log.Debug("Job runs no external tool")
		return nil
	}

	path, err := e.runner.FindTool(ctx, tool)
	if err != nil {
		missing := apperrors.ToolMissing(tool, err)
		e.log.Warn("Dump tool not found", "tool", tool, "error", err)
		if announce {
			e.emit(notify.NewEvent(notify.EventToolMissing, notify.SeverityWarning, missing.Error()).
				WithDetail("tool", tool).
				WithDetail("remediation", missing.Remediation))
		}
		return nil
	}

	e.mu.Lock()
	e.cfg.DumpTool = tool
	e.cfg.DumpToolPath = path
	e.mu.Unlock()

	e.log.Info("Dump tool found", "tool", tool, "path", path)
	if announce {
		e.emit(notify.NewEvent(notify.EventToolFound, notify.SeveritySuccess,
			fmt.Sprintf("Found %s at %s", tool, path)).
			WithDetail("tool", tool).
			WithDetail("path", path))
	}
	return nil
}

// RunCommand builds and runs the command, blocking until it finishes or is
// cancelled. Log lines reach the log callback only while the run is active.
func (e *Engine) RunCommand(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return apperrors.InvalidState("a command is already running")
	}
	cfg := e.cfg.Clone()
	cmd, err := e.build(cfg)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.failed = false
	e.cancel = cancel
	onLog := e.onLog
	e.mu.Unlock()

	var attached atomic.Bool
	attached.Store(true)
	defer func() {
		attached.Store(false)
		cancel()
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	if err := e.logFile.Init(); err != nil {
		e.log.Warn("Failed to initialise log file", "path", e.logFile.Path(), "error", err)
	}

	output := func(chunk string) {
		if !attached.Load() {
			return
		}
		if err := e.logFile.Write(chunk); err != nil {
			e.log.Debug("Failed to write log file", "error", err)
		}
		if onLog == nil {
			return
		}
		for _, line := range e.driver.SplitLog(chunk) {
			onLog(line)
		}
	}

	target := cfg.TargetDatabase(e.conn)
	op := e.log.StartOperation(string(e.Mode()))
	e.emit(e.event(started, notify.SeverityInfo, fmt.Sprintf("%s of %s started", e.title(), target), cfg))
	start := time.Now()

	err = e.runner.Run(runCtx, cmd, output)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		ev := e.event(completed, notify.SeveritySuccess, fmt.Sprintf("%s of %s completed", e.title(), target), cfg).
			WithDuration(elapsed)
		if e.Mode() == ModeBackup {
			size := e.outputSize(cfg)
			ev.WithBackupInfo(cfg.OutputFile(), size)
			op.Complete("finished", "path", cfg.OutputFile(), "size", humanize.IBytes(uint64(size)))
		} else {
			op.Complete("finished", "path", cfg.InputFile)
		}
		e.emit(ev)
		return nil

	case apperrors.IsCancelled(err) || runCtx.Err() != nil:
		op.Fail("cancelled")
		e.emit(e.event(cancelled, notify.SeverityWarning, fmt.Sprintf("%s of %s cancelled", e.title(), target), cfg).
			WithDuration(elapsed))
		if !apperrors.IsCancelled(err) {
			err = apperrors.Cancelled(err)
		}
		return err

	default:
		e.mu.Lock()
		e.failed = true
		e.mu.Unlock()
		op.Fail("failed", "error", err, "log", e.logFile.Path())
		e.emit(e.event(failed, notify.SeverityError, fmt.Sprintf("%s of %s failed", e.title(), target), cfg).
			WithDuration(elapsed).
			WithError(err).
			WithDetail("log", e.logFile.Path()))
		return err
	}
}

// CancelCommand asks the running command to stop. It reports whether a
// run was active.
func (e *Engine) CancelCommand() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.cancel == nil {
		return false
	}
	e.log.Info("Cancelling command")
	e.cancel()
	return true
}

// Failed reports whether the last run failed
func (e *Engine) Failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

// Running reports whether a command is running
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetLogCallback sets the receiver of processed log lines
func (e *Engine) SetLogCallback(fn func(line string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLog = fn
}

// SetNotificationCallback sets the receiver of notifications
func (e *Engine) SetNotificationCallback(fn func(event *notify.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNotify = fn
}

// InitLogFile creates the scratch log file, keeping existing content
func (e *Engine) InitLogFile() error { return e.logFile.Init() }

// ResetLogFile truncates the scratch log file
func (e *Engine) ResetLogFile() error { return e.logFile.Reset() }

// WriteToLog appends content to the scratch log file
func (e *Engine) WriteToLog(content string) error { return e.logFile.Write(content) }

// DeleteLogFile removes the scratch log file
func (e *Engine) DeleteLogFile() error { return e.logFile.Delete() }

// LogPath returns the path of the scratch log file
func (e *Engine) LogPath() string { return e.logFile.Path() }

type phase int

const (
	started phase = iota
	completed
	failed
	cancelled
)

var eventTypes = map[Mode][4]notify.EventType{
	ModeBackup:  {notify.EventBackupStarted, notify.EventBackupCompleted, notify.EventBackupFailed, notify.EventBackupCancelled},
	ModeRestore: {notify.EventRestoreStarted, notify.EventRestoreCompleted, notify.EventRestoreFailed, notify.EventRestoreCancelled},
}

func (e *Engine) event(p phase, severity notify.Severity, msg string, cfg job.Config) *notify.Event {
	ev := notify.NewEvent(eventTypes[e.Mode()][p], severity, msg).
		WithEngine(e.key).
		WithDatabase(cfg.TargetDatabase(e.conn))
	if e.Mode() == ModeRestore && cfg.InputFile != "" {
		ev.WithDetail("input", cfg.InputFile)
	}
	return ev
}

func (e *Engine) title() string {
	if e.Mode() == ModeRestore {
		return "Restore"
	}
	return "Backup"
}

func (e *Engine) emit(ev *notify.Event) {
	e.mu.Lock()
	fn := e.onNotify
	e.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// outputSize returns the size of the backup written by cfg, 0 when unknown
func (e *Engine) outputSize(cfg job.Config) int64 {
	info, err := e.fs.Stat(cfg.OutputFile())
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = afero.Walk(e.fs, cfg.OutputFile(), func(_ string, fi os.FileInfo, err error) error {
		if err == nil && !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total
}
