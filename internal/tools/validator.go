// Package tools locates the external dump and restore binaries
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"dbdump/internal/logger"
)

// ToolRequirement describes a tool that may be needed for an operation.
type ToolRequirement struct {
	Name     string // e.g. "pg_dump"
	Purpose  string // e.g. "PostgreSQL logical backup"
	Required bool   // false = informational only
}

// ToolStatus reports the availability of a single tool.
type ToolStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
}

// Validator checks whether external CLI tools are present on the system.
type Validator struct {
	log logger.Logger

	// LookPathFunc can be overridden in tests to stub exec.LookPath.
	LookPathFunc func(file string) (string, error)

	// VersionFunc can be overridden in tests to avoid running binaries.
	VersionFunc func(ctx context.Context, path string) string
}

// NewValidator creates a Validator that logs through log.
func NewValidator(log logger.Logger) *Validator {
	return &Validator{
		log:          log,
		LookPathFunc: exec.LookPath,
		VersionFunc:  toolVersion,
	}
}

// Find returns the absolute path of tool. A name containing a path
// separator is checked as given.
func (v *Validator) Find(ctx context.Context, tool string) (ToolStatus, error) {
	ts := ToolStatus{Name: tool}
	if err := ctx.Err(); err != nil {
		return ts, err
	}

	path, err := v.LookPathFunc(tool)
	if err != nil {
		if v.log != nil {
			v.log.Debug("tool not found", "tool", tool)
		}
		return ts, fmt.Errorf("%s: %w", tool, err)
	}

	ts.Available = true
	ts.Path = path
	if v.VersionFunc != nil {
		ts.Version = v.VersionFunc(ctx, path)
	}
	if v.log != nil {
		v.log.Debug("tool found", "tool", tool, "path", path, "version", ts.Version)
	}
	return ts, nil
}

// ValidateTools checks every requirement and returns per-tool status.
// An error is returned only when at least one *required* tool is missing.
func (v *Validator) ValidateTools(ctx context.Context, reqs []ToolRequirement) ([]ToolStatus, error) {
	results := make([]ToolStatus, 0, len(reqs))
	var missing []string

	for _, req := range reqs {
		ts, err := v.Find(ctx, req.Name)
		if err != nil && req.Required {
			missing = append(missing, req.Name)
		}
		results = append(results, ts)
	}

	if len(missing) > 0 {
		return results, fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
	return results, nil
}

// EngineTools returns the tools used by an engine family, keyed as in the
// builder factory. Unknown engines get every known tool as optional.
func EngineTools(engine string) []ToolRequirement {
	switch engine {
	case "postgresql", "postgres", "redshift":
		return []ToolRequirement{
			{Name: "pg_dump", Purpose: "PostgreSQL logical backup", Required: true},
			{Name: "pg_restore", Purpose: "PostgreSQL archive restore", Required: true},
			{Name: "psql", Purpose: "PostgreSQL plain restore", Required: true},
		}
	case "mysql", "tidb":
		return []ToolRequirement{
			{Name: "mysqldump", Purpose: "MySQL logical backup", Required: true},
			{Name: "mysql", Purpose: "MySQL restore", Required: true},
		}
	case "mariadb":
		return []ToolRequirement{
			{Name: "mariadb-dump", Purpose: "MariaDB logical backup", Required: true},
			{Name: "mariadb", Purpose: "MariaDB restore", Required: true},
		}
	case "sqlite", "sqlite3":
		return []ToolRequirement{
			{Name: "sqlite3", Purpose: "SQLite dump and restore", Required: true},
		}
	case "sqlserver", "mssql":
		return []ToolRequirement{
			{Name: "docker", Purpose: "Copy backups out of a SQL Server container", Required: false},
		}
	}

	var all []ToolRequirement
	for _, e := range []string{"postgresql", "mysql", "mariadb", "sqlite", "sqlserver"} {
		for _, r := range EngineTools(e) {
			r.Required = false
			all = append(all, r)
		}
	}
	return all
}

// toolVersion returns the first line of `<tool> --version`, or "".
func toolVersion(ctx context.Context, path string) string {
	output, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	line := strings.SplitN(string(output), "\n", 2)[0]
	return strings.TrimSpace(line)
}
