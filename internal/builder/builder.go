// Package builder turns a job configuration into the exact invocation of a
// dump or restore tool for one database engine, runs it and reports progress.
package builder

import (
	"context"

	"dbdump/internal/command"
	"dbdump/internal/job"
	"dbdump/internal/notify"
	"dbdump/internal/settings"
)

// Mode tells backup builders from restore builders
type Mode string

const (
	ModeBackup  Mode = "backup"
	ModeRestore Mode = "restore"
)

// Features lists optional capabilities of a builder
type Features struct {
	// SelectObjects means schemas or tables can be included or excluded
	SelectObjects bool `json:"selectObjects"`
	// Settings means the builder exposes a settings schema
	Settings bool `json:"settings"`
}

// Runner executes commands and locates tools
type Runner interface {
	Run(ctx context.Context, cmd command.Command, output func(chunk string)) error
	FindTool(ctx context.Context, name string) (string, error)
}

// Builder is the host-facing contract of a backup or restore builder
type Builder interface {
	Engine() string
	Mode() Mode

	SupportedFeatures() Features
	SettingsSections() settings.Schema

	Config() job.Config
	// SetConfig merges p into the configuration. An empty patch performs a
	// soft reset that keeps the discovered dump tool.
	SetConfig(p job.Patch) error
	UpdateConfig(fn func(cfg *job.Config))

	BuildCommand() (command.Command, error)
	ProcessLog(chunk string) []string

	// FindDumpTool must not be called while a command is running
	FindDumpTool(ctx context.Context, announce bool) error
	RunCommand(ctx context.Context) error
	CancelCommand() bool
	Failed() bool
	Running() bool

	SetLogCallback(fn func(line string))
	SetNotificationCallback(fn func(event *notify.Event))

	InitLogFile() error
	ResetLogFile() error
	WriteToLog(content string) error
	DeleteLogFile() error
	LogPath() string
}
