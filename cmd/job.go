package cmd

import (
	"context"
	"fmt"
	"strings"

	"dbdump/internal/builder"
	"dbdump/internal/config"
	"dbdump/internal/database"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/runner"
	"dbdump/internal/validation"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// jobFlags are the flags shared by commands that act on one job
type jobFlags struct {
	mode string
	set  []string
}

func (f *jobFlags) register(cmd *cobra.Command, withMode bool) {
	if withMode {
		cmd.Flags().StringVarP(&f.mode, "mode", "m", string(builder.ModeBackup), "Builder mode (backup, restore)")
	}
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "Override a job setting (name=value, repeatable)")
}

func (f *jobFlags) builderMode() (builder.Mode, error) {
	switch m := builder.Mode(strings.ToLower(f.mode)); m {
	case builder.ModeBackup, builder.ModeRestore:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be backup or restore", f.mode)
}

// parseSets turns name=value pairs into a patch. Values are read as YAML
// scalars or flow sequences, so "jobs=4" is a number and "includeTables=[a, b]" a list.
func parseSets(sets []string) (job.Patch, error) {
	p := job.Patch{}
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", s)
		}
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		p[name] = v
	}
	return p, nil
}

// loadJob reads the job file. Without one, an empty connection for the
// --engine flag is returned when allowEmpty is set.
func loadJob(allowEmpty bool) (*config.JobFile, error) {
	var jf *config.JobFile
	switch {
	case cfg.JobPath != "":
		loaded, err := config.LoadJobFile(cfg.JobPath)
		if err != nil {
			return nil, err
		}
		jf = loaded
	case allowEmpty:
		jf = &config.JobFile{}
	default:
		return nil, fmt.Errorf("a job file is required (--job)")
	}

	if cfg.Engine != "" {
		jf.Connection.Engine = cfg.Engine
	}
	if jf.Connection.Engine == "" {
		return nil, fmt.Errorf("no engine given: set connection.engine in the job file or use --engine")
	}
	if err := validation.Connection(jf.Connection); err != nil {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			"invalid connection in job file", "Fix the connection section of the job file").WithCause(err)
	}
	return jf, nil
}

// jobContext is one builder prepared from a job file
type jobContext struct {
	file    *config.JobFile
	builder builder.Builder
	db      *database.DB
}

// openJob creates the builder for mode and applies the job settings and
// overrides. With connect set, SQL Server jobs get a live connection for
// their statement steps.
func openJob(ctx context.Context, mode builder.Mode, flags *jobFlags, allowEmpty, connect bool) (*jobContext, error) {
	jf, err := loadJob(allowEmpty)
	if err != nil {
		return nil, err
	}
	jc := &jobContext{file: jf}

	opts := []builder.Option{
		builder.WithLogger(log),
		builder.WithWorkDir(cfg.GetEffectiveWorkDir()),
		builder.WithOutputDir(cfg.BackupDir),
	}
	if connect && database.Family(jf.Connection.Engine) == database.FamilySQLServer {
		db, err := database.Open(ctx, jf.Connection, log)
		if err != nil {
			return nil, err
		}
		jc.db = db
		opts = append(opts, builder.WithRunner(runner.New(log, runner.WithExecer(db))))
	}

	pair := builder.ForEngine(jf.Connection.Engine, jf.Connection, opts...)
	jc.builder = pair.Backup
	if mode == builder.ModeRestore {
		jc.builder = pair.Restore
	}

	if len(jf.Job) > 0 {
		if err := jc.builder.SetConfig(jf.Job); err != nil {
			jc.Close()
			return nil, err
		}
	}
	if flags != nil && len(flags.set) > 0 {
		p, err := parseSets(flags.set)
		if err != nil {
			jc.Close()
			return nil, err
		}
		if err := jc.builder.SetConfig(p); err != nil {
			jc.Close()
			return nil, err
		}
	}
	return jc, nil
}

// Close releases the live connection, if any
func (jc *jobContext) Close() error {
	if jc.db == nil {
		return nil
	}
	return jc.db.Close()
}
