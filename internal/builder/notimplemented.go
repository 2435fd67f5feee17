package builder

import (
	"context"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/notify"
	"dbdump/internal/settings"
)

// NotImplemented is the builder of engines without backup support.
// Every fallible operation returns an unsupported-operation error.
type NotImplemented struct {
	key  string
	mode Mode
}

var _ Builder = (*NotImplemented)(nil)

// NewNotImplemented creates the placeholder builder for key
func NewNotImplemented(key string, mode Mode) *NotImplemented {
	return &NotImplemented{key: key, mode: mode}
}

func (n *NotImplemented) unsupported(op string) error {
	return apperrors.Unsupported(n.key, string(n.mode)+" "+op)
}

func (n *NotImplemented) Engine() string                    { return n.key }
func (n *NotImplemented) Mode() Mode                        { return n.mode }
func (n *NotImplemented) SupportedFeatures() Features       { return Features{} }
func (n *NotImplemented) SettingsSections() settings.Schema { return settings.Schema{} }
func (n *NotImplemented) Config() job.Config                { return job.Config{} }
func (n *NotImplemented) SetConfig(job.Patch) error         { return n.unsupported("settings") }
func (n *NotImplemented) UpdateConfig(func(*job.Config))    {}

func (n *NotImplemented) BuildCommand() (command.Command, error) {
	return command.Command{}, n.unsupported("command")
}

func (n *NotImplemented) ProcessLog(string) []string { return nil }

func (n *NotImplemented) FindDumpTool(context.Context, bool) error {
	return n.unsupported("tool discovery")
}

func (n *NotImplemented) RunCommand(context.Context) error { return n.unsupported("run") }
func (n *NotImplemented) CancelCommand() bool              { return false }
func (n *NotImplemented) Failed() bool                     { return false }
func (n *NotImplemented) Running() bool                    { return false }

func (n *NotImplemented) SetLogCallback(func(string))                 {}
func (n *NotImplemented) SetNotificationCallback(func(*notify.Event)) {}

func (n *NotImplemented) InitLogFile() error      { return n.unsupported("log file") }
func (n *NotImplemented) ResetLogFile() error     { return n.unsupported("log file") }
func (n *NotImplemented) WriteToLog(string) error { return n.unsupported("log file") }
func (n *NotImplemented) DeleteLogFile() error    { return n.unsupported("log file") }
func (n *NotImplemented) LogPath() string         { return "" }
