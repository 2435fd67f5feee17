package builder

import (
	"time"

	"dbdump/internal/command"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/settings"
)

// mysqlDialect holds what differs between MySQL and MariaDB clients
type mysqlDialect struct {
	name       string
	dumpTool   string
	clientTool string
	// sslOff is the flag that turns TLS off; the two clients disagree
	sslOff string
}

var (
	dialectMySQL = mysqlDialect{
		name:       "MySQL",
		dumpTool:   "mysqldump",
		clientTool: "mysql",
		sslOff:     "--ssl-mode=DISABLED",
	}
	dialectMariaDB = mysqlDialect{
		name:       "MariaDB",
		dumpTool:   "mariadb-dump",
		clientTool: "mariadb",
		sslOff:     "--skip-ssl",
	}
)

// connArgs returns connection and TLS options. A socket replaces host and port.
func (d mysqlDialect) connArgs(conn job.Connection) []string {
	var args []string
	if conn.UsesSocket() {
		args = append(args, "--protocol=socket", "--socket="+conn.SocketPath)
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
		args = append(args, "--user="+conn.User)
	}

	if conn.SSL {
		args = append(args, "--ssl-mode=REQUIRED")
		if conn.SSLCAFile != "" {
			args = append(args, "--ssl-ca="+conn.SSLCAFile)
		}
		if conn.SSLCertFile != "" {
			args = append(args, "--ssl-cert="+conn.SSLCertFile)
		}
		if conn.SSLKeyFile != "" {
			args = append(args, "--ssl-key="+conn.SSLKeyFile)
		}
	} else {
		args = append(args, d.sslOff)
	}
	return args
}

func mysqlEnv(conn job.Connection) command.Env {
	env := command.Env{}
	env.SetOrUnset("MYSQL_PWD", conn.Password)
	return env
}

func exclusiveInsertModes(cfg job.Config) string {
	if cfg.InsertIgnore && cfg.ReplaceInto {
		return "INSERT IGNORE and REPLACE cannot be combined"
	}
	return ""
}

type mysqlBackup struct {
	dialect mysqlDialect
}

func (d mysqlBackup) Mode() Mode             { return ModeBackup }
func (d mysqlBackup) Tool(job.Config) string { return d.dialect.dumpTool }
func (d mysqlBackup) Features() Features     { return Features{SelectObjects: true, Settings: true} }
func (d mysqlBackup) SplitLog(c string) []string {
	return splitLines(c)
}

func (d mysqlBackup) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults(d.dialect.dumpTool, outputDir)
	cfg.FileName = job.GenerateFileName(conn.DatabaseName(), now, ".sql")
	cfg.SingleTransaction = true
	cfg.Triggers = true
	return cfg
}

func (d mysqlBackup) Sections() settings.Schema {
	return settings.Schema{
		settings.ToolSection(d.dialect.dumpTool),
		settings.OutputSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("singleTransaction", "Consistent snapshot in a single transaction", func(cfg job.Config) bool { return !cfg.LockTables }),
				checkbox("lockTables", "Lock tables", func(cfg job.Config) bool { return !cfg.SingleTransaction }),
				checkbox("routines", "Include stored routines", nil),
				checkbox("triggers", "Include triggers", nil),
				checkbox("events", "Include events", nil),
				checkbox("addDropTable", "Add DROP TABLE", nil),
				{Type: settings.Checkbox, SettingName: "insertIgnore", Label: "Use INSERT IGNORE", Valid: exclusiveInsertModes},
				checkbox("completeInsert", "Use complete INSERT statements", nil),
				checkbox("replaceInto", "Use REPLACE instead of INSERT", nil),
				checkbox("createDatabase", "Include CREATE DATABASE", settings.HasNoIncludedTables),
				checkbox("dropDatabase", "Add DROP DATABASE", func(cfg job.Config) bool {
					return cfg.CreateDatabase && settings.HasNoIncludedTables(cfg)
				}),
				{Type: settings.Checkbox, SettingName: "schemaOnly", Label: "Schema only", Valid: exclusiveSchemaData},
				checkbox("dataOnly", "Data only", nil),
				checkbox("verbose", "Verbose output", nil),
			},
		},
		settings.ObjectsSection(false),
		settings.CustomArgsSection(),
	}
}

func (d mysqlBackup) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return command.Command{}, apperrors.InvalidSetting("customArgs", cfg.CustomArgs, err.Error())
	}

	tables := job.Selected(cfg.IncludeTables)
	wholeDB := len(tables) == 0

	args := d.dialect.connArgs(conn)
	args = boolFlags(args,
		flag{cfg.SingleTransaction, "--single-transaction"},
		flag{cfg.LockTables && !cfg.SingleTransaction, "--lock-tables"},
		flag{cfg.Routines, "--routines"},
		flag{cfg.Triggers, "--triggers"},
		flag{!cfg.Triggers, "--skip-triggers"},
		flag{cfg.Events, "--events"},
		flag{cfg.AddDropTable, "--add-drop-table"},
		flag{cfg.InsertIgnore, "--insert-ignore"},
		flag{cfg.CompleteInsert, "--complete-insert"},
		flag{cfg.ReplaceInto, "--replace"},
		flag{cfg.CreateDatabase && wholeDB, "--databases"},
		flag{cfg.CreateDatabase && cfg.DropDatabase && wholeDB, "--add-drop-database"},
		flag{cfg.SchemaOnly, "--no-data"},
		// data only must not repeat the schema
		flag{cfg.DataOnly, "--no-create-info"},
		flag{cfg.DataOnly, "--no-create-db"},
		flag{cfg.Verbose, "--verbose"},
	)
	if wholeDB {
		for _, t := range job.Selected(cfg.ExcludeTables) {
			args = append(args, "--ignore-table="+db+"."+t)
		}
	}
	args = append(args, "--result-file="+cfg.OutputFile())
	args = append(args, extra...)
	args = append(args, db)
	args = append(args, tables...)

	return command.New(command.Process(program(cfg, d.Tool(cfg)), args, mysqlEnv(conn))), nil
}

type mysqlRestore struct {
	dialect mysqlDialect
}

func (d mysqlRestore) Mode() Mode             { return ModeRestore }
func (d mysqlRestore) Tool(job.Config) string { return d.dialect.clientTool }
func (d mysqlRestore) Features() Features     { return Features{Settings: true} }
func (d mysqlRestore) SplitLog(c string) []string {
	return splitLines(c)
}

func (d mysqlRestore) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	return baseDefaults(d.dialect.clientTool, outputDir)
}

func (d mysqlRestore) Sections() settings.Schema {
	return settings.Schema{
		settings.ToolSection(d.dialect.clientTool),
		settings.InputSection("SQL file"),
		settings.TargetSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				checkbox("force", "Continue after SQL errors", nil),
				checkbox("verbose", "Verbose output", nil),
			},
		},
		settings.CustomArgsSection(),
	}
}

func (d mysqlRestore) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}
	if cfg.InputFile == "" {
		return command.Command{}, apperrors.MissingSetting("inputFile")
	}
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return command.Command{}, apperrors.InvalidSetting("customArgs", cfg.CustomArgs, err.Error())
	}

	args := d.dialect.connArgs(conn)
	args = boolFlags(args,
		flag{cfg.Force, "--force"},
		flag{cfg.Verbose, "--verbose"},
	)
	args = append(args, extra...)
	args = append(args, "--database="+db, "--execute=source "+cfg.InputFile)

	return command.New(command.Process(program(cfg, d.Tool(cfg)), args, mysqlEnv(conn))), nil
}
