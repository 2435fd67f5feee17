package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	"dbdump/internal/job"
)

// Sections shared by every engine family

// ToolSection lets the user point at the dump tool or discover it
func ToolSection(tool string) Section {
	return Section{
		ID:     "tool",
		Header: "Dump Tool",
		Controls: []Control{
			{
				Type:  Info,
				Label: fmt.Sprintf("This job runs %s. Select its location or let dbdump find it on your PATH.", tool),
			},
			{
				Type:        FilePicker,
				SettingName: "dumpToolPath",
				Label:       fmt.Sprintf("%s location", tool),
				Description: "Leave empty to run the first match on PATH",
				Actions:     []Action{ActionFindDumpTool},
			},
		},
	}
}

// OutputSection selects where the backup is written
func OutputSection() Section {
	return Section{
		ID:     "output",
		Header: "Output",
		Controls: []Control{
			{
				Type:        FilePicker,
				SettingName: "outputPath",
				Label:       "Output directory",
				Directory:   true,
				Required:    true,
			},
			{
				Type:        Input,
				SettingName: "fileName",
				Label:       "File name",
				Required:    true,
				Valid:       ValidFileName,
			},
		},
	}
}

// InputSection selects the backup a restore reads
func InputSection(label string) Section {
	return Section{
		ID:     "input",
		Header: "Backup File",
		Controls: []Control{
			{
				Type:        FilePicker,
				SettingName: "inputFile",
				Label:       label,
				Required:    true,
			},
		},
	}
}

// TargetSection lets a restore go to a database other than the connected one
func TargetSection() Section {
	return Section{
		ID:     "target",
		Header: "Target",
		Controls: []Control{
			{
				Type:        Input,
				SettingName: "database",
				Label:       "Target database",
				Description: "Leave empty to use the connected database",
			},
		},
	}
}

// ObjectsSection selects schemas and tables to include or exclude
func ObjectsSection(withSchemas bool) Section {
	controls := []Control{}
	if withSchemas {
		controls = append(controls,
			Control{Type: TextArea, SettingName: "includeSchemas", Label: "Include schemas", Description: "One per line"},
			Control{Type: TextArea, SettingName: "excludeSchemas", Label: "Exclude schemas", Description: "One per line"},
		)
	}
	controls = append(controls,
		Control{Type: TextArea, SettingName: "includeTables", Label: "Include tables", Description: "One per line"},
		Control{Type: TextArea, SettingName: "excludeTables", Label: "Exclude tables", Description: "One per line", Show: HasNoIncludedTables},
	)
	return Section{ID: "objects", Header: "Objects", Controls: controls}
}

// CustomArgsSection passes extra arguments through to the tool
func CustomArgsSection() Section {
	return Section{
		ID:     "advanced",
		Header: "Advanced",
		Controls: []Control{
			{
				Type:        TextArea,
				SettingName: "customArgs",
				Label:       "Additional arguments",
				Description: "Appended verbatim after the generated options",
				Valid:       ValidCustomArgs,
			},
		},
	}
}

// ValidFileName rejects names that contain a directory part
func ValidFileName(cfg job.Config) string {
	if cfg.FileName == "" {
		return ""
	}
	if strings.ContainsAny(cfg.FileName, `/\`) || filepath.Base(cfg.FileName) != cfg.FileName {
		return "File name must not contain a directory"
	}
	return ""
}

// ValidCustomArgs rejects arguments a shell could not split
func ValidCustomArgs(cfg job.Config) string {
	if _, err := cfg.ExtraArgs(); err != nil {
		return "Additional arguments cannot be parsed: " + err.Error()
	}
	return ""
}

// ValidCompressionLevel requires a level between 0 and 9
func ValidCompressionLevel(cfg job.Config) string {
	if cfg.CompressionLevel < 0 || cfg.CompressionLevel > 9 {
		return "Compression level must be between 0 and 9"
	}
	return ""
}

// ValidJobs requires a non-negative job count
func ValidJobs(cfg job.Config) string {
	if cfg.Jobs < 0 {
		return "Jobs must not be negative"
	}
	return ""
}

// HasNoIncludedTables hides exclusions once an explicit table list is given
func HasNoIncludedTables(cfg job.Config) bool {
	return len(job.Selected(cfg.IncludeTables)) == 0
}

// IsLocalContainer is true when the artifact is copied through a container
func IsLocalContainer(cfg job.Config) bool {
	return cfg.CopyToHost && !cfg.Remote
}

// NotRemote is true when files live on the machine running dbdump
func NotRemote(cfg job.Config) bool {
	return !cfg.Remote
}
