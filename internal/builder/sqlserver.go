package builder

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dbdump/internal/command"
	"dbdump/internal/database"
	apperrors "dbdump/internal/errors"
	"dbdump/internal/job"
	"dbdump/internal/settings"
)

// DefaultContainerPath is the backup directory of the official SQL Server images
const DefaultContainerPath = "/var/opt/mssql/backup"

var mssqlAlgorithms = []settings.Option{
	{Value: "AES_128", Label: "AES 128"},
	{Value: "AES_192", Label: "AES 192"},
	{Value: "AES_256", Label: "AES 256"},
	{Value: "TRIPLE_DES_3KEY", Label: "Triple DES"},
}

func validAlgorithm(cfg job.Config) string {
	if !cfg.Encrypt {
		return ""
	}
	for _, o := range mssqlAlgorithms {
		if o.Value == cfg.EncryptionAlgorithm {
			return ""
		}
	}
	return "Select an encryption algorithm"
}

func validStats(cfg job.Config) string {
	if cfg.Stats < 0 || cfg.Stats > 100 {
		return "Progress interval must be between 0 and 100 percent"
	}
	return ""
}

func encrypting(cfg job.Config) bool { return cfg.Encrypt }

// containerFile is the path of name inside the container
func containerFile(cfg job.Config, name string) string {
	dir := cfg.ContainerPath
	if dir == "" {
		dir = DefaultContainerPath
	}
	return path.Join(dir, name)
}

func mssqlTool(cfg job.Config) string {
	if settings.IsLocalContainer(cfg) {
		return "docker"
	}
	return ""
}

func containerSection() settings.Section {
	return settings.Section{
		ID:     "container",
		Header: "Container",
		Controls: []settings.Control{
			{
				Type:        settings.Checkbox,
				SettingName: "remote",
				Label:       "Server runs on another machine",
				Description: "Paths are used as is on the server",
			},
			{
				Type:        settings.Checkbox,
				SettingName: "copyToHost",
				Label:       "Copy the file between this machine and a Docker container",
				Show:        settings.NotRemote,
				OnValueChange: func(cfg job.Config) job.Config {
					if settings.IsLocalContainer(cfg) && cfg.ContainerPath == "" {
						cfg.ContainerPath = DefaultContainerPath
					}
					return cfg
				},
			},
			{
				Type:        settings.Input,
				SettingName: "containerName",
				Label:       "Container name",
				Required:    true,
				Show:        settings.IsLocalContainer,
			},
			{
				Type:        settings.Input,
				SettingName: "containerPath",
				Label:       "Backup directory in the container",
				Required:    true,
				Show:        settings.IsLocalContainer,
			},
		},
	}
}

func dockerToolSection() settings.Section {
	s := settings.ToolSection("docker")
	s.Show = settings.IsLocalContainer
	return s
}

func statsClause(stats int) string {
	return "STATS = " + strconv.Itoa(stats)
}

type mssqlBackup struct{}

func (mssqlBackup) Mode() Mode                 { return ModeBackup }
func (mssqlBackup) Tool(cfg job.Config) string { return mssqlTool(cfg) }
func (mssqlBackup) Features() Features         { return Features{Settings: true} }
func (mssqlBackup) SplitLog(c string) []string { return splitLines(c) }

func (mssqlBackup) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("", outputDir)
	cfg.FileName = job.GenerateFileName(conn.DatabaseName(), now, ".bak")
	cfg.ContainerPath = DefaultContainerPath
	cfg.Stats = 10
	cfg.Checksum = true
	cfg.EncryptionAlgorithm = "AES_256"
	return cfg
}

func (mssqlBackup) Sections() settings.Schema {
	return settings.Schema{
		containerSection(),
		dockerToolSection(),
		settings.OutputSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				{Type: settings.Input, SettingName: "backupName", Label: "Backup set name", Placeholder: "<database>-Full Database Backup"},
				checkbox("copyOnly", "Copy-only backup", nil),
				checkbox("compress", "Compress", nil),
				checkbox("checksum", "Verify page checksums", nil),
				{Type: settings.Number, SettingName: "stats", Label: "Progress interval (percent)", Valid: validStats},
			},
		},
		{
			ID:     "encryption",
			Header: "Encryption",
			Controls: []settings.Control{
				checkbox("encrypt", "Encrypt the backup", nil),
				{
					Type:        settings.Select,
					SettingName: "encryptionAlgorithm",
					Label:       "Algorithm",
					Options:     mssqlAlgorithms,
					Show:        encrypting,
					Valid:       validAlgorithm,
				},
				{
					Type:        settings.Input,
					SettingName: "serverCertificate",
					Label:       "Server certificate",
					Required:    true,
					Show:        encrypting,
				},
			},
		},
	}
}

func (d mssqlBackup) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}

	local := settings.IsLocalContainer(cfg)
	target := cfg.OutputFile()
	if local {
		if cfg.ContainerName == "" {
			return command.Command{}, apperrors.MissingSetting("containerName")
		}
		target = containerFile(cfg, cfg.FileName)
	}

	var with []string
	if cfg.CopyOnly {
		with = append(with, "COPY_ONLY")
	}
	if cfg.Compress {
		with = append(with, "COMPRESSION")
	}
	if cfg.Checksum {
		with = append(with, "CHECKSUM")
	}
	if cfg.Encrypt {
		with = append(with, fmt.Sprintf("ENCRYPTION (ALGORITHM = %s, SERVER CERTIFICATE = %s)",
			cfg.EncryptionAlgorithm, database.QuoteMSSQLIdentifier(cfg.ServerCertificate)))
	}
	name := cfg.BackupName
	if name == "" {
		name = db + "-Full Database Backup"
	}
	with = append(with, "NAME = N'"+database.EscapeLiteral(name)+"'", statsClause(cfg.Stats))

	stmt := fmt.Sprintf("BACKUP DATABASE %s TO DISK = N'%s' WITH %s",
		database.QuoteMSSQLIdentifier(db), database.EscapeLiteral(target), strings.Join(with, ", "))

	cmd := command.New(command.SQL(stmt))
	if local {
		cmd = cmd.Then(command.Process(program(cfg, "docker"),
			[]string{"cp", cfg.ContainerName + ":" + target, cfg.OutputFile()}, nil))
	}
	return cmd, nil
}

type mssqlRestore struct{}

func (mssqlRestore) Mode() Mode                 { return ModeRestore }
func (mssqlRestore) Tool(cfg job.Config) string { return mssqlTool(cfg) }
func (mssqlRestore) Features() Features         { return Features{Settings: true} }
func (mssqlRestore) SplitLog(c string) []string { return splitLines(c) }

func (mssqlRestore) Defaults(conn job.Connection, outputDir string, now time.Time) job.Config {
	cfg := baseDefaults("", outputDir)
	cfg.ContainerPath = DefaultContainerPath
	cfg.Stats = 10
	return cfg
}

func (mssqlRestore) Sections() settings.Schema {
	return settings.Schema{
		containerSection(),
		dockerToolSection(),
		settings.InputSection("Backup file (.bak)"),
		settings.TargetSection(),
		{
			ID:     "options",
			Header: "Options",
			Controls: []settings.Control{
				{Type: settings.Number, SettingName: "stats", Label: "Progress interval (percent)", Valid: validStats},
			},
		},
	}
}

func (d mssqlRestore) Build(cfg job.Config, conn job.Connection) (command.Command, error) {
	db := cfg.TargetDatabase(conn)
	if db == "" {
		return command.Command{}, apperrors.MissingSetting("database")
	}
	if cfg.InputFile == "" {
		return command.Command{}, apperrors.MissingSetting("inputFile")
	}

	source := cfg.InputFile
	var steps []command.Step
	if settings.IsLocalContainer(cfg) {
		if cfg.ContainerName == "" {
			return command.Command{}, apperrors.MissingSetting("containerName")
		}
		source = containerFile(cfg, filepath.Base(cfg.InputFile))
		steps = append(steps, command.Process(program(cfg, "docker"),
			[]string{"cp", cfg.InputFile, cfg.ContainerName + ":" + source}, nil))
	}

	stmt := fmt.Sprintf("RESTORE DATABASE %s FROM DISK = N'%s' WITH REPLACE, %s",
		database.QuoteMSSQLIdentifier(db), database.EscapeLiteral(source), statsClause(cfg.Stats))
	steps = append(steps, command.SQL(stmt))

	return command.New(steps...), nil
}
