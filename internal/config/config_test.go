package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dbdump/internal/notify"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("DBDUMP_LOG_LEVEL", "")
	t.Setenv("DBDUMP_NOTIFY_WEBHOOK_URL", "")

	cfg := New()
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.BackupDir == "" {
		t.Error("expected a default backup directory")
	}
	if cfg.NotifyRetries != 3 || cfg.NotifyRetryDelay != 2*time.Second {
		t.Errorf("retry defaults = %d %v", cfg.NotifyRetries, cfg.NotifyRetryDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("DBDUMP_LOG_LEVEL", "debug")
	t.Setenv("DBDUMP_LOG_FORMAT", "json")
	t.Setenv("DBDUMP_WORK_DIR", "/scratch")
	t.Setenv("DBDUMP_BACKUP_DIR", "/srv/backups")
	t.Setenv("DBDUMP_NOTIFY_WEBHOOK_URL", "https://hooks.example.com/dbdump")
	t.Setenv("DBDUMP_NOTIFY_RETRIES", "not-a-number")
	t.Setenv("DBDUMP_NOTIFY_RETRY_DELAY", "500ms")

	cfg := New()
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log = %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.GetEffectiveWorkDir() != "/scratch" || cfg.BackupDir != "/srv/backups" {
		t.Errorf("dirs = %q %q", cfg.WorkDir, cfg.BackupDir)
	}
	if cfg.NotifyRetries != 3 {
		t.Errorf("unparsable values keep the default, got %d", cfg.NotifyRetries)
	}
	if cfg.NotifyRetryDelay != 500*time.Millisecond {
		t.Errorf("NotifyRetryDelay = %v", cfg.NotifyRetryDelay)
	}

	nc := cfg.NotifyConfig()
	if !nc.WebhookEnabled || nc.WebhookURL != "https://hooks.example.com/dbdump" || nc.WebhookMethod != "POST" {
		t.Errorf("notify config = %+v", nc)
	}
}

func TestEffectiveWorkDirFallback(t *testing.T) {
	cfg := &Config{}
	if cfg.GetEffectiveWorkDir() != os.TempDir() {
		t.Errorf("GetEffectiveWorkDir() = %q", cfg.GetEffectiveWorkDir())
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{LogFormat: "text", NotifyMinSeverity: "info", NotifyWebhookMethod: "POST", NotifyRetries: 3}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{"valid", func(*Config) {}, nil},
		{"json format", func(c *Config) { c.LogFormat = "JSON" }, nil},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, []string{"log-format"}},
		{"bad severity", func(c *Config) { c.NotifyMinSeverity = "loud" }, []string{"notify-min-severity"}},
		{"bad url", func(c *Config) { c.NotifyWebhookURL = "ftp://x" }, []string{"notify-webhook-url"}},
		{"backup dir", func(c *Config) { c.BackupDir = "/srv/backups" }, nil},
		{"system backup dir", func(c *Config) { c.BackupDir = "/etc" }, []string{"backup-dir"}},
		{
			name: "all reported",
			modify: func(c *Config) {
				c.LogFormat = "xml"
				c.NotifyRetries = -1
				c.NotifyWebhookMethod = "DELETE"
			},
			fields: []string{"log-format", "notify-retries", "notify-webhook-method"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, f := range tt.fields {
				if !strings.Contains(err.Error(), "'"+f+"'") {
					t.Errorf("error does not mention %s: %v", f, err)
				}
			}
		})
	}
}

func TestNotifyConfigSeverity(t *testing.T) {
	cfg := &Config{NotifyMinSeverity: "Warning", NotifyWebhookMethod: "put"}
	nc := cfg.NotifyConfig()
	if nc.MinSeverity != notify.SeverityWarning || nc.WebhookMethod != "PUT" || nc.WebhookEnabled {
		t.Errorf("notify config = %+v", nc)
	}
}

func TestLoadJobFile(t *testing.T) {
	t.Setenv("DBDUMP_PASSWORD", "")
	t.Setenv("PGPASSWORD", "from-env")

	path := filepath.Join(t.TempDir(), "job.yaml")
	content := `connection:
  engine: postgresql
  host: db.internal
  port: 5432
  user: app
  database: app
job:
  format: directory
  jobs: 4
  includeSchemas: [public, sales]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	jf, err := LoadJobFile(path)
	if err != nil {
		t.Fatalf("LoadJobFile: %v", err)
	}
	if jf.Connection.Engine != "postgresql" || jf.Connection.Port != 5432 || jf.Connection.Database != "app" {
		t.Errorf("connection = %+v", jf.Connection)
	}
	if jf.Connection.Password != "from-env" {
		t.Errorf("password should come from PGPASSWORD, got %q", jf.Connection.Password)
	}
	if jf.Job["format"] != "directory" || jf.Job["jobs"] != 4 {
		t.Errorf("job = %v", jf.Job)
	}
}

func TestParseJobFileErrors(t *testing.T) {
	tests := map[string]string{
		"unknown section":        "connection: {engine: mysql}\nschedule: daily\n",
		"unknown connection key": "connection: {engine: mysql, hostname: x}\n",
		"bad yaml":               "connection: [\n",
	}
	for name, data := range tests {
		if _, err := ParseJobFile([]byte(data)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	if _, err := LoadJobFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv("DBDUMP_PASSWORD", "")
	t.Setenv("PGPASSWORD", "pg")
	t.Setenv("MYSQL_PWD", "my")
	t.Setenv("SQLCMDPASSWORD", "ms")

	tests := map[string]string{"postgresql": "pg", "mariadb": "my", "mssql": "ms", "sqlite": ""}
	for engine, want := range tests {
		if got := passwordFromEnv(engine); got != want {
			t.Errorf("passwordFromEnv(%s) = %q, want %q", engine, got, want)
		}
	}

	t.Setenv("DBDUMP_PASSWORD", "override")
	if got := passwordFromEnv("mysql"); got != "override" {
		t.Errorf("DBDUMP_PASSWORD should win, got %q", got)
	}
}
