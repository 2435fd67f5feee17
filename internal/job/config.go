// Package job holds the configuration of one backup or restore job and
// the connection it runs against.
package job

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// Postgres dump formats
const (
	FormatPlain     = "plain"
	FormatDirectory = "directory"
	FormatTar       = "tar"
	FormatCustom    = "custom"
)

// Config is the union of every engine's job options. Field tags match the
// settingName of the controls that edit them.
type Config struct {
	// Tool discovery results survive a soft reset
	DumpTool     string `yaml:"dumpTool" json:"dumpTool"`
	DumpToolPath string `yaml:"dumpToolPath" json:"dumpToolPath"`

	OutputPath string `yaml:"outputPath" json:"outputPath"`
	FileName   string `yaml:"fileName" json:"fileName"`
	InputFile  string `yaml:"inputFile" json:"inputFile"`

	// Database overrides the connection's database as backup source or restore target
	Database string `yaml:"database" json:"database"`

	Format           string `yaml:"format" json:"format"`
	CompressionLevel int    `yaml:"compressionLevel" json:"compressionLevel"`
	Jobs             int    `yaml:"jobs" json:"jobs"`

	Verbose           bool `yaml:"verbose" json:"verbose"`
	Clean             bool `yaml:"clean" json:"clean"`
	IfExists          bool `yaml:"ifExists" json:"ifExists"`
	Create            bool `yaml:"create" json:"create"`
	NoOwner           bool `yaml:"noOwner" json:"noOwner"`
	NoPrivileges      bool `yaml:"noPrivileges" json:"noPrivileges"`
	SchemaOnly        bool `yaml:"schemaOnly" json:"schemaOnly"`
	DataOnly          bool `yaml:"dataOnly" json:"dataOnly"`
	LargeObjects      bool `yaml:"largeObjects" json:"largeObjects"`
	Inserts           bool `yaml:"inserts" json:"inserts"`
	ColumnInserts     bool `yaml:"columnInserts" json:"columnInserts"`
	NoComments        bool `yaml:"noComments" json:"noComments"`
	SingleTransaction bool `yaml:"singleTransaction" json:"singleTransaction"`
	ExitOnError       bool `yaml:"exitOnError" json:"exitOnError"`

	Routines       bool `yaml:"routines" json:"routines"`
	Triggers       bool `yaml:"triggers" json:"triggers"`
	Events         bool `yaml:"events" json:"events"`
	LockTables     bool `yaml:"lockTables" json:"lockTables"`
	AddDropTable   bool `yaml:"addDropTable" json:"addDropTable"`
	InsertIgnore   bool `yaml:"insertIgnore" json:"insertIgnore"`
	CompleteInsert bool `yaml:"completeInsert" json:"completeInsert"`
	ReplaceInto    bool `yaml:"replaceInto" json:"replaceInto"`
	DropDatabase   bool `yaml:"dropDatabase" json:"dropDatabase"`
	CreateDatabase bool `yaml:"createDatabase" json:"createDatabase"`
	Force          bool `yaml:"force" json:"force"`

	NewLines       bool `yaml:"newLines" json:"newLines"`
	NoSys          bool `yaml:"noSys" json:"noSys"`
	PreserveRowIDs bool `yaml:"preserveRowIds" json:"preserveRowIds"`

	CustomArgs string `yaml:"customArgs" json:"customArgs"`

	IncludeSchemas []string `yaml:"includeSchemas" json:"includeSchemas"`
	ExcludeSchemas []string `yaml:"excludeSchemas" json:"excludeSchemas"`
	IncludeTables  []string `yaml:"includeTables" json:"includeTables"`
	ExcludeTables  []string `yaml:"excludeTables" json:"excludeTables"`

	// CopyToHost moves the artifact between the host and a database container
	CopyToHost    bool   `yaml:"copyToHost" json:"copyToHost"`
	Remote        bool   `yaml:"remote" json:"remote"`
	ContainerName string `yaml:"containerName" json:"containerName"`
	ContainerPath string `yaml:"containerPath" json:"containerPath"`

	BackupName          string `yaml:"backupName" json:"backupName"`
	Compress            bool   `yaml:"compress" json:"compress"`
	CopyOnly            bool   `yaml:"copyOnly" json:"copyOnly"`
	Checksum            bool   `yaml:"checksum" json:"checksum"`
	Encrypt             bool   `yaml:"encrypt" json:"encrypt"`
	EncryptionAlgorithm string `yaml:"encryptionAlgorithm" json:"encryptionAlgorithm"`
	ServerCertificate   string `yaml:"serverCertificate" json:"serverCertificate"`
	Stats               int    `yaml:"stats" json:"stats"`
}

// Patch is a partial update keyed by setting name
type Patch map[string]interface{}

// Clone returns a deep copy
func (c Config) Clone() Config {
	c.IncludeSchemas = cloneStrings(c.IncludeSchemas)
	c.ExcludeSchemas = cloneStrings(c.ExcludeSchemas)
	c.IncludeTables = cloneStrings(c.IncludeTables)
	c.ExcludeTables = cloneStrings(c.ExcludeTables)
	return c
}

// Merge returns c with the keys present in p assigned.
// Keys that do not name a setting are rejected.
func (c Config) Merge(p Patch) (Config, error) {
	data, err := yaml.Marshal(map[string]interface{}(p))
	if err != nil {
		return c, fmt.Errorf("failed to encode patch: %w", err)
	}

	out := c.Clone()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return c, fmt.Errorf("invalid settings patch: %w", err)
	}
	return out, nil
}

// SoftReset returns defaults with the discovered tool kept from c
func (c Config) SoftReset(defaults Config) Config {
	out := defaults.Clone()
	out.DumpTool = c.DumpTool
	out.DumpToolPath = c.DumpToolPath
	return out
}

// OutputFile joins the output directory and file name
func (c Config) OutputFile() string {
	if c.FileName == "" {
		return c.OutputPath
	}
	if c.OutputPath == "" {
		return c.FileName
	}
	return filepath.Join(c.OutputPath, c.FileName)
}

// ExtraArgs splits CustomArgs the way a POSIX shell would
func (c Config) ExtraArgs() ([]string, error) {
	if strings.TrimSpace(c.CustomArgs) == "" {
		return nil, nil
	}
	return shellquote.Split(c.CustomArgs)
}

// TargetDatabase returns the job's database override or the connection's database
func (c Config) TargetDatabase(conn Connection) string {
	if c.Database != "" {
		return c.Database
	}
	return conn.DatabaseName()
}

// Selected returns the given tables, or nil when the slice has no entries
func Selected(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// TimestampLayout is the layout of the timestamp in generated file names
const TimestampLayout = "20060102_150405"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// GenerateFileName returns `<database>_<timestamp><ext>` with unsafe characters replaced
func GenerateFileName(database string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s%s", fileBase(database), now.Format(TimestampLayout), ext)
}

// RetargetFileName renames a name generated for database from so it names
// database to instead. Names not generated for from are returned unchanged.
func RetargetFileName(name, from, to string) string {
	prefix := fileBase(from) + "_"
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || len(rest) < len(TimestampLayout) {
		return name
	}
	if _, err := time.Parse(TimestampLayout, rest[:len(TimestampLayout)]); err != nil {
		return name
	}
	return fileBase(to) + "_" + rest
}

// fileBase reduces a database name or file path to a safe file name stem.
// Leading dots are dropped so the result is never a hidden file.
func fileBase(database string) string {
	base := filepath.Base(database)
	if e := filepath.Ext(base); e != "" && e != base {
		base = strings.TrimSuffix(base, e)
	}
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "backup"
	}
	return base
}

// ReplaceExt swaps the extension of a generated file name
func ReplaceExt(name, ext string) string {
	for _, known := range []string{".sql", ".dump", ".tar", ".bak"} {
		if strings.HasSuffix(name, known) {
			return strings.TrimSuffix(name, known) + ext
		}
	}
	return name + ext
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
