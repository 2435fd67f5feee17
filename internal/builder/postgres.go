package builder

import (
	"strconv"
	"strings"
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/settings"
)

var pgFormats = []settings.Option{
	{Value: job.FormatCustom, Label: "Custom (pg_restore)"},
	{Value: job.FormatPlain, Label: "Plain SQL"},
	{Value: job.FormatTar, Label: "Tar"},
	{Value: job.FormatDirectory, Label: "Directory"},
}

// pgExtension returns the file extension pg_dump archives use per format
func pgExtension(format string) string {
	switch format {
	case job.FormatPlain:
		return ".sql"
	case job.FormatTar:
		return ".tar"
	case job.FormatDirectory:
		return ""
	default:
		return ".dump"
	}
}

// pgFormatOf guesses the archive format from a file name
func pgFormatOf(name string) string {
	switch {
	case strings.HasSuffix(name, ".sql"):
		return job.FormatPlain
	case strings.HasSuffix(name, ".tar"):
		return job.FormatTar
	case strings.HasSuffix(name, ".dump"), strings.HasSuffix(name, ".backup"):
		return job.FormatCustom
	}
	return ""
}

func validPgFormat(format string) bool {
	for _, o := range pgFormats {
		if o.Value == format {
			return true
		}
	}
	return false
}

func isPgFormat(formats ...string) settings.Predicate {
	return func(cfg job.Config) bool {
		for _, f := range formats {
			if cfg.Format == f {
				return true
			}
		}
		return false
	}
}

func notPgFormat(format string) settings.Predicate {
	return func(cfg job.Config) bool { return cfg.Format != format }
}

func exclusiveSchemaData(cfg job.Config) string {
	if cfg.SchemaOnly && cfg.DataOnly {
		return "Schema only and data only cannot be combined"
	}
	return ""
}

// pgConnArgs returns the connection options shared by pg_dump, pg_restore and psql
func pgConnArgs(conn job.Connection) []string {
	var args []string
	if conn.UsesSocket() {
		args = append(args, "--host="+conn.SocketPath)
	} else {
		host, _ := conn.Endpoint()
		if host != "" {
			args = append(args, "--host="+host)
		}
		if port := conn.PortString(); port != "" {
			args = append(args, "--port="+port)
		}
	}
	if conn.User != "" {
		args = append(args, "--username="+conn.User)
	}
	return args
}

// pgEnv carries the password and TLS settings. Variables that are not
// configured are removed so the user's environment cannot leak in.
func pgEnv(conn job.Connection) command.Env {
	env := command.Env{}
	env.SetOrUnset("PGPASSWORD", conn.Password)
	if conn.SSL {
		env.Set("PGSSLMODE", "require")
		env.SetOrUnset("PGSSLROOTCERT", conn.SSLCAFile)
		env.SetOrUnset("PGSSLCERT", conn.SSLCertFile)
		env.SetOrUnset("PGSSLKEY", conn.SSLKeyFile)
	} else {
		env.Set("PGSSLMODE", "prefer")
		env.Unset("PGSSLROOTCERT")
		env.Unset("PGSSLCERT")
		env.Unset("PGSSLKEY")
	}
	return env
}

func pgFilterArgs(args []string, cfg job.Config, withExcludeTables bool) []string {
	for _, s := range job.Selected(cfg.IncludeSchemas) {
		args = append(args, "--schema="+s)
	}
	for _, s := range job.Selected(cfg.ExcludeSchemas) {
		args = append(args, "--exclude-schema="+s)
	}
	tables := job.Selected(cfg.IncludeTables)
	for _, t := range tables {
		args = append(args, "--table="+t)
	}
	if withExcludeTables && len(tables) == 0 {
		for _, t := range job.Selected(cfg.ExcludeTables) {
			args = append(args, "--exclude-table="+t)
		}
	}
	return args
}

type pgBackup struct{}

func (pgBackup) Mode() Mode                 { return ModeBackup }
func (pgBackup) Tool(job.Config) string     { return "pg_dump" }
func (pgBackup) Features() Features         { return Features{SelectObjects: true, Settings: true} }
func (pgBackup) SplitLog(c string) []string { return splitPgDump(c) }

var splitPgDump = prefixSplitter("pg_dump")

func (pgBackup) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("pg_dump", outputDir)
	cfg.Format = job.FormatCustom
	cfg.CompressionLevel = 6
	cfg.FileName = job.GenerateFileName(conn.DatabaseName(), now, pgExtension(cfg.Format))
	return cfg
}

func (pgBackup) Sections() settings.Schema {
	return settings.Schema{
		settings.ToolSection("pg_dump"),
		settings.OutputSection(),
		{
			ID:     "format",
			Header: "Format",
			Controls: []settings.Control{
				{
					Type:        settings.Select,
					SettingName: "format",
					Label:       "Format",
					Options:     pgFormats,
					Required:    true,
					OnValueChange: func(cfg job.Config) job.Config {
						cfg.FileName = job.ReplaceExt(cfg.FileName, pgExtension(cfg.Format))
						return cfg
					},
				},
				{
					Type:        settings.Number,
					SettingName: "compressionLevel",
					Label:       "Compression level",
					Description: "0 disables compression",
					Show:        notPgFormat(job.FormatTar),
					Valid:       settings.ValidCompressionLevel,
				},
				{
					Type:        settings.Number,
					SettingName: "jobs",
					Label:       "Parallel jobs",
					Show:        isPgFormat(job.FormatDirectory),
					Valid:       settings.ValidJobs,
				},
			},
		},
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("verbose", "Verbose output", nil),
				checkbox("clean", "Drop objects before recreating them", nil),
				checkbox("ifExists", "Use IF EXISTS when dropping", func(cfg job.Config) bool { return cfg.Clean }),
				checkbox("create", "Include CREATE DATABASE", nil),
				checkbox("noOwner", "Skip ownership", nil),
				checkbox("noPrivileges", "Skip privileges", nil),
				{Type: settings.Checkbox, SettingName: "schemaOnly", Label: "Schema only", Valid: exclusiveSchemaData},
				checkbox("dataOnly", "Data only", nil),
				checkbox("largeObjects", "Include large objects", nil),
				checkbox("inserts", "Use INSERT instead of COPY", nil),
				checkbox("columnInserts", "Use INSERT with column names", nil),
				checkbox("noComments", "Skip comments", nil),
			},
		},
		settings.ObjectsSection(true),
		settings.CustomArgsSection(),
	}
}

func (d pgBackup) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}
	if !validPgFormat(cfg.Format) {
		return command.Command{}, apperrors.InvalidSetting("format", cfg.Format, "expected plain, directory, tar or custom")
	}
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return command.Command{}, apperrors.InvalidSetting("customArgs", cfg.CustomArgs, err.Error())
	}

	args := pgConnArgs(conn)
	args = append(args,
		"--dbname="+db,
		"--format="+cfg.Format,
		"--file="+cfg.OutputFile(),
	)
	if cfg.Format != job.FormatTar {
		args = append(args, "--compress="+strconv.Itoa(cfg.CompressionLevel))
	}
	if cfg.Format == job.FormatDirectory && cfg.Jobs > 0 {
		args = append(args, "--jobs="+strconv.Itoa(cfg.Jobs))
	}
	args = boolFlags(args,
		flag{cfg.Verbose, "--verbose"},
		flag{cfg.Clean, "--clean"},
		flag{cfg.Clean && cfg.IfExists, "--if-exists"},
		flag{cfg.Create, "--create"},
		flag{cfg.NoOwner, "--no-owner"},
		flag{cfg.NoPrivileges, "--no-privileges"},
		flag{cfg.SchemaOnly, "--schema-only"},
		flag{cfg.DataOnly, "--data-only"},
		flag{cfg.LargeObjects, "--blobs"},
		flag{cfg.Inserts, "--inserts"},
		flag{cfg.ColumnInserts, "--column-inserts"},
		flag{cfg.NoComments, "--no-comments"},
	)
	args = pgFilterArgs(args, cfg, true)
	args = append(args, extra...)

	return command.New(command.Process(program(cfg, d.Tool(cfg)), args, pgEnv(conn))), nil
}

type pgRestore struct{}

func (pgRestore) Mode() Mode         { return ModeRestore }
func (pgRestore) Features() Features { return Features{SelectObjects: true, Settings: true} }

// Tool is psql for plain SQL files and pg_restore for archives
func (pgRestore) Tool(cfg job.Config) string {
	if cfg.Format == job.FormatPlain {
		return "psql"
	}
	return "pg_restore"
}

var splitPgRestore = prefixSplitter("pg_restore", "psql")

func (pgRestore) SplitLog(c string) []string { return splitPgRestore(c) }

func (pgRestore) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("pg_restore", outputDir)
	cfg.Format = job.FormatCustom
	return cfg
}

func (d pgRestore) Sections() settings.Schema {
	archive := notPgFormat(job.FormatPlain)
	return settings.Schema{
		settings.ToolSection("pg_restore / psql"),
		{
			ID:     "input",
			Header: "Backup File",
			Controls: []settings.Control{
				{
					Type:        settings.FilePicker,
					SettingName: "inputFile",
					Label:       "Backup file or directory",
					Required:    true,
					OnValueChange: func(cfg job.Config) job.Config {
						if f := pgFormatOf(cfg.InputFile); f != "" {
							cfg.Format = f
						}
						return switchTool(cfg, d.Tool(cfg))
					},
				},
				{
					Type:        settings.Select,
					SettingName: "format",
					Label:       "Backup format",
					Options:     pgFormats,
					Required:    true,
					OnValueChange: func(cfg job.Config) job.Config {
						return switchTool(cfg, d.Tool(cfg))
					},
				},
			},
		},
		settings.TargetSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("verbose", "Verbose output", nil),
				checkbox("singleTransaction", "Restore in a single transaction", func(cfg job.Config) bool { return cfg.Jobs <= 1 }),
				checkbox("exitOnError", "Stop on the first error", nil),
				checkbox("clean", "Drop objects before recreating them", archive),
				checkbox("ifExists", "Use IF EXISTS when dropping", func(cfg job.Config) bool { return archive(cfg) && cfg.Clean }),
				checkbox("create", "Create the database first", archive),
				checkbox("noOwner", "Skip ownership", archive),
				checkbox("noPrivileges", "Skip privileges", archive),
				{Type: settings.Checkbox, SettingName: "schemaOnly", Label: "Schema only", Show: archive, Valid: exclusiveSchemaData},
				checkbox("dataOnly", "Data only", archive),
				{
					Type:        settings.Number,
					SettingName: "jobs",
					Label:       "Parallel jobs",
					Show:        isPgFormat(job.FormatCustom, job.FormatDirectory),
					Valid:       settings.ValidJobs,
				},
			},
		},
		{
			ID:       "objects",
			Header:   "Objects",
			Show:     archive,
			Controls: settings.ObjectsSection(true).Controls[:3],
		},
		settings.CustomArgsSection(),
	}
}

func (d pgRestore) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}
	if cfg.InputFile == "" {
		return command.Command{}, apperrors.MissingSetting("inputFile")
	}
	if !validPgFormat(cfg.Format) {
		return command.Command{}, apperrors.InvalidSetting("format", cfg.Format, "expected plain, directory, tar or custom")
	}
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return command.Command{}, apperrors.InvalidSetting("customArgs", cfg.CustomArgs, err.Error())
	}

	tool := d.Tool(cfg)
	args := pgConnArgs(conn)
	args = append(args, "--dbname="+db)

	if cfg.Format == job.FormatPlain {
		args = boolFlags(args,
			flag{cfg.SingleTransaction, "--single-transaction"},
			flag{cfg.Verbose, "--echo-errors"},
		)
		if cfg.ExitOnError {
			args = append(args, "--set=ON_ERROR_STOP=1")
		}
		args = append(args, extra...)
		args = append(args, "--file="+cfg.InputFile)
		return command.New(command.Process(program(cfg, tool), args, pgEnv(conn))), nil
	}

	args = boolFlags(args,
		flag{cfg.Verbose, "--verbose"},
		flag{cfg.Clean, "--clean"},
		flag{cfg.Clean && cfg.IfExists, "--if-exists"},
		flag{cfg.Create, "--create"},
		flag{cfg.NoOwner, "--no-owner"},
		flag{cfg.NoPrivileges, "--no-privileges"},
		flag{cfg.SchemaOnly, "--schema-only"},
		flag{cfg.DataOnly, "--data-only"},
		flag{cfg.SingleTransaction && cfg.Jobs <= 1, "--single-transaction"},
		flag{cfg.ExitOnError, "--exit-on-error"},
	)
	if cfg.Jobs > 1 && cfg.Format != job.FormatTar {
		args = append(args, "--jobs="+strconv.Itoa(cfg.Jobs))
	}
	args = pgFilterArgs(args, cfg, false)
	args = append(args, extra...)
	args = append(args, cfg.InputFile)

	return command.New(command.Process(program(cfg, tool), args, pgEnv(conn))), nil
}
