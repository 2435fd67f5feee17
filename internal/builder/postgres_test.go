package builder

import (
	"reflect"
	"testing"

	"dbdump/internal/job"
)

func pgConn() job.Connection {
	return job.Connection{Engine: "postgresql", Host: "db.internal", Port: 5432, User: "app_user", Password: "s3cret", Database: "app"}
}

func TestPostgresBackupDefaultCommand(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
	cmd := mustBuild(t, b)

	if cmd.MainCommand() != "pg_dump" {
		t.Errorf("MainCommand() = %q", cmd.MainCommand())
	}
	want := []string{
		"--host=db.internal",
		"--port=5432",
		"--username=app_user",
		"--dbname=app",
		"--format=custom",
		"--file=/backups/app_" + stamp + ".dump",
		"--compress=6",
	}
	if !reflect.DeepEqual(cmd.Options(), want) {
		t.Errorf("Options() =\n%v\nwant\n%v", cmd.Options(), want)
	}
	if cmd.IsSQL() || cmd.Post() != nil {
		t.Error("pg_dump runs as a single process step")
	}
	if v, _ := cmd.Env().Lookup("PGPASSWORD"); v != "s3cret" {
		t.Errorf("PGPASSWORD = %q", v)
	}
}

func TestPostgresBuildIsDeterministic(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
	mustSet(t, b, job.Patch{"includeSchemas": []string{"public", "sales"}, "verbose": true, "customArgs": "--lock-wait-timeout=10"})

	first := mustBuild(t, b)
	for i := 0; i < 5; i++ {
		if again := mustBuild(t, b); !reflect.DeepEqual(first, again) {
			t.Fatalf("build %d differs:\n%v\n%v", i, first, again)
		}
	}
}

func TestPostgresSSLEnvironment(t *testing.T) {
	conn := pgConn()
	conn.SSL = true
	conn.SSLCAFile = "/certs/ca.pem"
	conn.SSLCertFile = "/certs/client.pem"
	conn.SSLKeyFile = "/certs/client.key"

	env := mustBuild(t, newTestEngine(t, "postgresql", ModeBackup, conn)).Env()
	for name, want := range map[string]string{
		"PGSSLMODE":     "require",
		"PGSSLROOTCERT": "/certs/ca.pem",
		"PGSSLCERT":     "/certs/client.pem",
		"PGSSLKEY":      "/certs/client.key",
	} {
		if got, ok := env.Lookup(name); !ok || got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	env = mustBuild(t, newTestEngine(t, "postgresql", ModeBackup, pgConn())).Env()
	if got, _ := env.Lookup("PGSSLMODE"); got != "prefer" {
		t.Errorf("PGSSLMODE = %q, want prefer", got)
	}
	for _, name := range []string{"PGSSLROOTCERT", "PGSSLCERT", "PGSSLKEY"} {
		if !env.IsUnset(name) {
			t.Errorf("%s should be explicitly unset", name)
		}
	}
}

func TestPostgresPasswordUnsetWhenEmpty(t *testing.T) {
	conn := pgConn()
	conn.Password = ""
	env := mustBuild(t, newTestEngine(t, "postgresql", ModeBackup, conn)).Env()
	if !env.IsUnset("PGPASSWORD") {
		t.Error("PGPASSWORD should be unset without a password")
	}
}

func TestPostgresEndpointSelection(t *testing.T) {
	tunnel := pgConn()
	tunnel.TunnelActive = true
	tunnel.TunnelLocalHost = "127.0.0.1"
	tunnel.TunnelLocalPort = 40123

	localTunnel := pgConn()
	localTunnel.TunnelActive = true
	localTunnel.TunnelLocalPort = 15432

	socket := pgConn()
	socket.SocketEnabled = true
	socket.SocketPath = "/var/run/postgresql"

	tests := []struct {
		name    string
		conn    job.Connection
		want    []string
		notWant []string
	}{
		{"tcp", pgConn(), []string{"--host=db.internal", "--port=5432"}, nil},
		{"tunnel", tunnel, []string{"--host=127.0.0.1", "--port=40123"}, []string{"--host=db.internal"}},
		{"tunnel without host", localTunnel, []string{"--host=127.0.0.1", "--port=15432"}, []string{"--host=db.internal", "--port=5432"}},
		{"socket", socket, []string{"--host=/var/run/postgresql"}, []string{"--port=5432", "--host=db.internal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := mustBuild(t, newTestEngine(t, "postgresql", ModeBackup, tt.conn)).Options()
			for _, w := range tt.want {
				if !contains(opts, w) {
					t.Errorf("missing %s in %v", w, opts)
				}
			}
			for _, w := range tt.notWant {
				if contains(opts, w) {
					t.Errorf("unexpected %s in %v", w, opts)
				}
			}
		})
	}
}

func TestPostgresFormatRules(t *testing.T) {
	tests := []struct {
		format   string
		jobs     int
		file     string
		compress bool
		jobsFlag bool
	}{
		{job.FormatCustom, 4, "app_" + stamp + ".dump", true, false},
		{job.FormatPlain, 0, "app_" + stamp + ".sql", true, false},
		{job.FormatTar, 0, "app_" + stamp + ".tar", false, false},
		{job.FormatDirectory, 4, "app_" + stamp, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
			mustSet(t, b, job.Patch{"format": tt.format, "jobs": tt.jobs})

			if b.Config().FileName != tt.file {
				t.Errorf("FileName = %q, want %q", b.Config().FileName, tt.file)
			}
			opts := mustBuild(t, b).Options()
			if got := hasPrefix(opts, "--compress="); got != tt.compress {
				t.Errorf("--compress present = %v, want %v (%v)", got, tt.compress, opts)
			}
			if got := contains(opts, "--jobs=4"); got != tt.jobsFlag {
				t.Errorf("--jobs present = %v, want %v", got, tt.jobsFlag)
			}
		})
	}
}

func TestPostgresFlagsAndFilters(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
	mustSet(t, b, job.Patch{
		"clean":          true,
		"ifExists":       true,
		"noOwner":        true,
		"largeObjects":   true,
		"includeSchemas": []string{"public"},
		"excludeTables":  []string{"audit_log"},
		"customArgs":     `--exclude-table-data "big table"`,
	})

	opts := mustBuild(t, b).Options()
	want := []string{
		"--clean", "--if-exists", "--no-owner", "--blobs",
		"--schema=public", "--exclude-table=audit_log",
		"--exclude-table-data", "big table",
	}
	if !reflect.DeepEqual(opts[7:], want) {
		t.Errorf("Options()[7:] = %v, want %v", opts[7:], want)
	}

	mustSet(t, b, job.Patch{"includeTables": []string{"orders"}})
	opts = mustBuild(t, b).Options()
	if !contains(opts, "--table=orders") || contains(opts, "--exclude-table=audit_log") {
		t.Errorf("included tables replace exclusions: %v", opts)
	}
}

func TestPostgresSchemaOnlyConflict(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
	mustSet(t, b, job.Patch{"schemaOnly": true, "dataOnly": true})
	if _, err := b.BuildCommand(); err == nil {
		t.Error("schema only with data only should fail validation")
	}
}

func TestPostgresProcessLog(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeBackup, pgConn())
	tests := []struct {
		chunk string
		want  []string
	}{
		{"pg_dump: dumping contents of table a\n", []string{"pg_dump: dumping contents of table a"}},
		{"pg_dump: reading schemas pg_dump: reading tables pg_dump: done\n",
			[]string{"pg_dump: reading schemas", "pg_dump: reading tables", "pg_dump: done"}},
		{"  \n\n", nil},
		{"warning first pg_dump: then this", []string{"warning first", "pg_dump: then this"}},
	}
	for _, tt := range tests {
		if got := b.ProcessLog(tt.chunk); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ProcessLog(%q) = %q, want %q", tt.chunk, got, tt.want)
		}
	}

	r := newTestEngine(t, "postgresql", ModeRestore, pgConn())
	got := r.ProcessLog("pg_restore: creating TABLE a pg_restore: creating TABLE b")
	if len(got) != 2 || got[1] != "pg_restore: creating TABLE b" {
		t.Errorf("restore ProcessLog = %q", got)
	}
}

func TestPostgresRestoreArchive(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeRestore, pgConn())
	mustSet(t, b, job.Patch{"inputFile": "/in/app.dump", "database": "app_copy", "clean": true, "ifExists": true, "singleTransaction": true})

	cmd := mustBuild(t, b)
	if cmd.MainCommand() != "pg_restore" {
		t.Errorf("MainCommand() = %q", cmd.MainCommand())
	}
	want := []string{
		"--host=db.internal", "--port=5432", "--username=app_user",
		"--dbname=app_copy", "--clean", "--if-exists", "--single-transaction",
		"/in/app.dump",
	}
	if !reflect.DeepEqual(cmd.Options(), want) {
		t.Errorf("Options() = %v, want %v", cmd.Options(), want)
	}

	mustSet(t, b, job.Patch{"jobs": 4})
	opts := mustBuild(t, b).Options()
	if contains(opts, "--single-transaction") || !contains(opts, "--jobs=4") {
		t.Errorf("parallel restore cannot use a single transaction: %v", opts)
	}
}

func TestPostgresRestorePlainUsesPsql(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeRestore, pgConn())
	b.UpdateConfig(func(cfg *job.Config) {
		cfg.DumpToolPath = "/usr/lib/postgresql/16/bin/pg_restore"
	})
	mustSet(t, b, job.Patch{"inputFile": "/in/app.sql", "exitOnError": true})

	cfg := b.Config()
	if cfg.Format != job.FormatPlain || cfg.DumpTool != "psql" {
		t.Fatalf("input file should select plain format and psql: %+v", cfg)
	}
	if cfg.DumpToolPath != "/usr/lib/postgresql/16/bin/psql" {
		t.Errorf("DumpToolPath = %q", cfg.DumpToolPath)
	}

	cmd := mustBuild(t, b)
	if cmd.MainCommand() != "/usr/lib/postgresql/16/bin/psql" {
		t.Errorf("MainCommand() = %q", cmd.MainCommand())
	}
	opts := cmd.Options()
	if opts[len(opts)-1] != "--file=/in/app.sql" || !contains(opts, "--set=ON_ERROR_STOP=1") {
		t.Errorf("Options() = %v", opts)
	}
}

func TestPostgresRestoreExplicitFormatWins(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeRestore, pgConn())
	b.UpdateConfig(func(cfg *job.Config) {
		cfg.DumpToolPath = "/usr/lib/postgresql/16/bin/pg_restore"
	})
	mustSet(t, b, job.Patch{"inputFile": "/in/app.sql", "format": job.FormatCustom})

	cfg := b.Config()
	if cfg.Format != job.FormatCustom || cfg.DumpTool != "pg_restore" {
		t.Fatalf("format = %q, tool = %q", cfg.Format, cfg.DumpTool)
	}
	if cfg.DumpToolPath != "/usr/lib/postgresql/16/bin/pg_restore" {
		t.Errorf("DumpToolPath = %q", cfg.DumpToolPath)
	}
	if cmd := mustBuild(t, b); cmd.MainCommand() != "/usr/lib/postgresql/16/bin/pg_restore" {
		t.Errorf("MainCommand() = %q", cmd.MainCommand())
	}
}

func TestPostgresRestoreRequiresInput(t *testing.T) {
	b := newTestEngine(t, "postgresql", ModeRestore, pgConn())
	_, err := b.BuildCommand()
	if err == nil {
		t.Fatal("expected configuration error")
	}
}
