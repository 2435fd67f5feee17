package config

import (
	"bytes"
	"fmt"
	"os"

	"dbdump/internal/job"

	"gopkg.in/yaml.v3"
)

// JobFile is a job description read from YAML:
//
//	connection:
//	  engine: postgresql
//	  host: db.internal
//	  database: app
//	job:
//	  format: directory
//	  jobs: 4
type JobFile struct {
	Connection job.Connection `yaml:"connection"`
	// Job holds the settings to apply over the engine defaults
	Job job.Patch `yaml:"job"`
}

// LoadJobFile reads and parses the job file at path
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	jf, err := ParseJobFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jf, nil
}

// ParseJobFile parses a job description. Unknown top-level and connection
// keys are rejected; job keys are checked when the patch is applied.
func ParseJobFile(data []byte) (*JobFile, error) {
	jf := &JobFile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(jf); err != nil {
		return nil, fmt.Errorf("invalid job file: %w", err)
	}
	if jf.Connection.Password == "" {
		jf.Connection.Password = passwordFromEnv(jf.Connection.Engine)
	}
	return jf, nil
}

// passwordFromEnv returns the password the engine's own tools would read
// from the environment, so job files need not store it
func passwordFromEnv(engine string) string {
	if p := os.Getenv("DBDUMP_PASSWORD"); p != "" {
		return p
	}
	switch engine {
	case "postgresql", "postgres", "redshift":
		return os.Getenv("PGPASSWORD")
	case "mysql", "mariadb", "tidb":
		return os.Getenv("MYSQL_PWD")
	case "sqlserver", "mssql":
		return os.Getenv("SQLCMDPASSWORD")
	}
	return ""
}
