package builder

import (
	"reflect"
	"testing"

	"dbdump/internal/job"
)

func sqliteConn() job.Connection {
	return job.Connection{Engine: "sqlite", File: "/data/app.db"}
}

func TestSQLiteBackupCommand(t *testing.T) {
	b := newTestEngine(t, "sqlite", ModeBackup, sqliteConn())
	if got := b.Config().FileName; got != "app_"+stamp+".sql" {
		t.Errorf("FileName = %q", got)
	}

	cmd := mustBuild(t, b)
	want := []string{
		"/data/app.db",
		".output /backups/app_" + stamp + ".sql",
		".trace stdout",
		".dump",
	}
	if cmd.MainCommand() != "sqlite3" || !reflect.DeepEqual(cmd.Options(), want) {
		t.Errorf("command = %s %v", cmd.MainCommand(), cmd.Options())
	}

	mustSet(t, b, job.Patch{"dataOnly": true, "preserveRowIds": true, "includeTables": []string{"users", "audit log"}, "outputPath": "/my backups"})
	opts := mustBuild(t, b).Options()
	if opts[1] != `.output "/my backups/app_`+stamp+`.sql"` {
		t.Errorf("output = %s", opts[1])
	}
	if opts[3] != `.dump --data-only --preserve-rowids users "audit log"` {
		t.Errorf("dump = %s", opts[3])
	}
}

func TestSQLiteRestoreCommand(t *testing.T) {
	tests := []struct {
		name  string
		patch job.Patch
		want  []string
	}{
		{
			name:  "bail by default",
			patch: job.Patch{"inputFile": "/in/app.sql"},
			want:  []string{"/data/app.db", ".bail on", ".read /in/app.sql"},
		},
		{
			name:  "keep going",
			patch: job.Patch{"inputFile": "/in/app.sql", "exitOnError": false},
			want:  []string{"/data/app.db", ".read /in/app.sql"},
		},
		{
			name:  "quoted input",
			patch: job.Patch{"inputFile": `/in/it's.sql`},
			want:  []string{"/data/app.db", ".bail on", `.read "/in/it's.sql"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestEngine(t, "sqlite", ModeRestore, sqliteConn())
			mustSet(t, b, tt.patch)
			if got := mustBuild(t, b).Options(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Options() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSQLiteRequiresFile(t *testing.T) {
	b := newTestEngine(t, "sqlite", ModeBackup, job.Connection{Engine: "sqlite"})
	if _, err := b.BuildCommand(); err == nil {
		t.Error("expected an error without a database file")
	}
}

func TestDotArg(t *testing.T) {
	tests := map[string]string{
		"plain.sql":       "plain.sql",
		"with space.sql":  `"with space.sql"`,
		`say "hi".sql`:    `"say \"hi\".sql"`,
		`C:\dumps\db.sql`: `"C:\\dumps\\db.sql"`,
		"":                `""`,
	}
	for in, want := range tests {
		if got := dotArg(in); got != want {
			t.Errorf("dotArg(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("CREATE TABLE a(x);\n\n  INSERT INTO a VALUES(1);  \n")
	want := []string{"CREATE TABLE a(x);", "INSERT INTO a VALUES(1);"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLines = %q", got)
	}
}

func TestSQLiteProcessLog(t *testing.T) {
	b := newTestEngine(t, "sqlite", ModeBackup, sqliteConn())
	got := b.ProcessLog("line1\nline2\n\n")
	if !reflect.DeepEqual(got, []string{"line1", "line2"}) {
		t.Errorf("ProcessLog = %q", got)
	}
	if got := b.ProcessLog("\n \n"); len(got) != 0 {
		t.Errorf("blank chunk = %q", got)
	}
}
