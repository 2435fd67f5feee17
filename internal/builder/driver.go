package builder

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"dbdump/internal/command"
	"dbdump/internal/job"
	"dbdump/internal/settings"
)

// Driver supplies the engine specific parts of an Engine
type Driver interface {
	Mode() Mode
	// Tool is the binary the job runs for cfg, or "" when it runs no binary
	Tool(cfg job.Config) string
	Features() Features
	Defaults(conn job.Connection, outputDir string, now time.Time) job.Config
	Sections() settings.Schema
	Build(cfg job.Config, conn job.Connection) (command.Command, error)
	SplitLog(chunk string) []string
}

// program returns the configured path of tool, a sibling of the configured
// path when the job switched tools, or the bare name for a PATH lookup
func program(cfg job.Config, tool string) string {
	if cfg.DumpToolPath == "" {
		return tool
	}
	if cfg.DumpTool == "" || cfg.DumpTool == tool {
		return cfg.DumpToolPath
	}
	return filepath.Join(filepath.Dir(cfg.DumpToolPath), tool)
}

// switchTool points the configured tool at want, keeping a discovered
// tool's directory so sibling binaries are found next to it
func switchTool(cfg job.Config, want string) job.Config {
	if cfg.DumpTool == want {
		return cfg
	}
	if cfg.DumpToolPath != "" {
		cfg.DumpToolPath = filepath.Join(filepath.Dir(cfg.DumpToolPath), want)
	}
	cfg.DumpTool = want
	return cfg
}

// baseDefaults holds defaults shared by every driver
func baseDefaults(tool, outputDir string) job.Config {
	return job.Config{
		DumpTool:   tool,
		OutputPath: outputDir,
	}
}

// splitLines splits a chunk into trimmed non-empty lines
func splitLines(chunk string) []string {
	var out []string
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// prefixSplitter returns a splitter that also breaks lines where one of the
// tool prefixes ("pg_dump: ") appears again, so each message keeps its prefix
func prefixSplitter(tools ...string) func(string) []string {
	quoted := make([]string, len(tools))
	for i, t := range tools {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(`(?:` + strings.Join(quoted, "|") + `): `)

	return func(chunk string) []string {
		var out []string
		for _, line := range splitLines(chunk) {
			cuts := []int{0}
			for _, m := range re.FindAllStringIndex(line, -1) {
				if m[0] > 0 {
					cuts = append(cuts, m[0])
				}
			}
			cuts = append(cuts, len(line))
			for i := 0; i+1 < len(cuts); i++ {
				if frag := strings.TrimSpace(line[cuts[i]:cuts[i+1]]); frag != "" {
					out = append(out, frag)
				}
			}
		}
		return out
	}
}

// boolFlags appends the flag of every enabled option in order
func boolFlags(args []string, flags ...flag) []string {
	for _, f := range flags {
		if f.on {
			args = append(args, f.name)
		}
	}
	return args
}

type flag struct {
	on   bool
	name string
}

func checkbox(setting, label string, show settings.Predicate) settings.Control {
	return settings.Control{Type: settings.Checkbox, SettingName: setting, Label: label, Show: show}
}
