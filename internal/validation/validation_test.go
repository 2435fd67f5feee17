package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbdump/internal/job"

	"github.com/hashicorp/go-multierror"
)

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{1, false},
		{5432, false},
		{65535, false},
		{0, true},
		{-1, true},
		{65536, true},
	}

	for _, tt := range tests {
		err := ValidatePort("port", tt.port)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePort(%d) error = %v, wantErr %v", tt.port, err, tt.wantErr)
		}
	}
}

func TestValidateBackupDir(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"home subdir", "/home/app/db_backups", false},
		{"tmp", "/tmp/backups", false},
		{"relative", "backups", false},
		{"empty", "", true},
		{"traversal", "/tmp/../etc", true},
		{"tilde", "~/backups", true},
		{"command substitution", "/tmp/$(id)", true},
		{"root", "/", true},
		{"etc", "/etc", true},
		{"etc trailing slash", "/etc/", true},
		{"too long", "/" + strings.Repeat("a", 4100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBackupDir(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBackupDir(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDatabaseName(t *testing.T) {
	tests := []struct {
		name    string
		db      string
		engine  string
		wantErr bool
	}{
		{"simple", "app", "postgresql", false},
		{"reserved word", "select", "postgresql", false},
		{"spaces", "my db", "mysql", false},
		{"empty", "", "postgresql", true},
		{"slash", "a/b", "postgresql", true},
		{"backslash", `a\b`, "sqlserver", true},
		{"null byte", "a\x00b", "mysql", true},
		{"64 chars postgres", strings.Repeat("a", 64), "postgresql", true},
		{"64 chars mysql", strings.Repeat("a", 64), "mysql", false},
		{"65 chars mariadb", strings.Repeat("a", 65), "mariadb", true},
		{"128 chars sqlserver", strings.Repeat("a", 128), "sqlserver", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseName(tt.db, tt.engine)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDatabaseName(%q, %q) error = %v, wantErr %v", tt.db, tt.engine, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"localhost", false},
		{"db.internal", false},
		{"db-01.example.com", false},
		{"10.0.0.5", false},
		{"::1", false},
		{"[::1]", false},
		{`sqlhost\SQLEXPRESS`, false},
		{"", true},
		{"[::1", true},
		{"[nope]", true},
		{"-bad.example.com", true},
		{"bad..example.com", true},
		{"bad host", true},
		{strings.Repeat("a", 64) + ".com", true},
	}

	for _, tt := range tests {
		err := ValidateHost(tt.host)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHost(%q) error = %v, wantErr %v", tt.host, err, tt.wantErr)
		}
	}
}

func TestConnection(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "mysqld.sock")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		conn     job.Connection
		wantErrs int
	}{
		{
			name: "valid tcp",
			conn: job.Connection{Engine: "postgresql", Host: "db.internal", Port: 5432, Database: "app"},
		},
		{
			name: "sqlite file only",
			conn: job.Connection{Engine: "sqlite", File: "/data/app.db"},
		},
		{
			name: "socket replaces host check",
			conn: job.Connection{Engine: "mysql", Host: "bad host", SocketEnabled: true, SocketPath: sock},
		},
		{
			name:     "missing socket",
			conn:     job.Connection{Engine: "mysql", SocketEnabled: true, SocketPath: filepath.Join(dir, "nope.sock")},
			wantErrs: 1,
		},
		{
			name:     "bad port and host",
			conn:     job.Connection{Engine: "postgresql", Host: "bad host", Port: 70000},
			wantErrs: 2,
		},
		{
			name:     "tunnel without port",
			conn:     job.Connection{Engine: "postgresql", Host: "db.internal", TunnelActive: true, TunnelLocalHost: "127.0.0.1"},
			wantErrs: 1,
		},
		{
			name:     "bad database name",
			conn:     job.Connection{Engine: "mysql", Host: "db", Database: "../etc"},
			wantErrs: 1,
		},
		{
			name:     "unreadable certificate",
			conn:     job.Connection{Engine: "postgresql", Host: "db", SSL: true, SSLCAFile: filepath.Join(dir, "ca.pem")},
			wantErrs: 1,
		},
		{
			name: "certificates ignored without ssl",
			conn: job.Connection{Engine: "postgresql", Host: "db", SSLCAFile: filepath.Join(dir, "ca.pem")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Connection(tt.conn)
			if tt.wantErrs == 0 {
				if err != nil {
					t.Fatalf("Connection() error = %v", err)
				}
				return
			}
			var merr *multierror.Error
			if !errors.As(err, &merr) {
				t.Fatalf("Connection() error = %v, want multierror", err)
			}
			if len(merr.Errors) != tt.wantErrs {
				t.Errorf("got %d errors, want %d: %v", len(merr.Errors), tt.wantErrs, merr.Errors)
			}
			var verr *ValidationError
			if !errors.As(merr.Errors[0], &verr) {
				t.Errorf("error %T is not a ValidationError", merr.Errors[0])
			}
		})
	}
}
