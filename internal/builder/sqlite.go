package builder

import (
	"strings"
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/settings"
)

// dotArg quotes an argument of a sqlite3 dot-command when it contains
// whitespace or quotes
func dotArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func sqlitePath(conn job.Connection) (string, error) {
	path := conn.DatabaseName()
	if path == "" {
		return "", apperrors.MissingSetting("file")
	}
	return path, nil
}

type sqliteBackup struct{}

func (sqliteBackup) Mode() Mode                 { return ModeBackup }
func (sqliteBackup) Tool(job.Config) string     { return "sqlite3" }
func (sqliteBackup) Features() Features         { return Features{SelectObjects: true, Settings: true} }
func (sqliteBackup) SplitLog(c string) []string { return splitLines(c) }

func (sqliteBackup) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("sqlite3", outputDir)
	cfg.FileName = job.GenerateFileName(conn.DatabaseName(), now, ".sql")
	return cfg
}

func (sqliteBackup) Sections() settings.Schema {
	return settings.Schema{
		settings.ToolSection("sqlite3"),
		settings.OutputSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("dataOnly", "Data only", nil),
				checkbox("newLines", "Keep newlines in string values", nil),
				checkbox("noSys", "Skip system tables", nil),
				checkbox("preserveRowIds", "Preserve rowids", nil),
			},
		},
		{
			ID:     "objects",
			Header: "Objects",
			Controls: []settings.Control{
				{Type: settings.TextArea, SettingName: "includeTables", Label: "Tables", Description: "One per line, LIKE patterns allowed"},
			},
		},
	}
}

func (d sqliteBackup) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	path, err := sqlitePath(conn)
	if err != nil {
		return command.Command{}, err
	}

	dump := []string{".dump"}
	dump = boolFlags(dump,
		flag{cfg.DataOnly, "--data-only"},
		flag{cfg.NewLines, "--newlines"},
		flag{cfg.NoSys, "--nosys"},
		flag{cfg.PreserveRowIDs, "--preserve-rowids"},
	)
	for _, t := range job.Selected(cfg.IncludeTables) {
		dump = append(dump, dotArg(t))
	}

	args := []string{
		path,
		".output " + dotArg(cfg.OutputFile()),
		".trace stdout",
		strings.Join(dump, " "),
	}
	return command.New(command.Process(program(cfg, d.Tool(cfg)), args, nil)), nil
}

type sqliteRestore struct{}

func (sqliteRestore) Mode() Mode                 { return ModeRestore }
func (sqliteRestore) Tool(job.Config) string     { return "sqlite3" }
func (sqliteRestore) Features() Features         { return Features{Settings: true} }
func (sqliteRestore) SplitLog(c string) []string { return splitLines(c) }

func (sqliteRestore) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("sqlite3", outputDir)
	cfg.ExitOnError = true
	return cfg
}

func (sqliteRestore) Sections() settings.Schema {
	return settings.Schema{
		settings.ToolSection("sqlite3"),
		settings.InputSection("SQL file"),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("exitOnError", "Stop on the first error", nil),
			},
		},
	}
}

func (d sqliteRestore) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	path, err := sqlitePath(conn)
	if err != nil {
		return command.Command{}, err
	}
	if cfg.InputFile == "" {
		return command.Command{}, apperrors.MissingSetting("inputFile")
	}

	args := []string{path}
	if cfg.ExitOnError {
		args = append(args, ".bail on")
	}
	args = append(args, ".read "+dotArg(cfg.InputFile))
	return command.New(command.Process(program(cfg, d.Tool(cfg)), args, nil)), nil
}
