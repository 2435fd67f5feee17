package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"

	"dbdump/internal/builder"
	"dbdump/internal/tools"

	"github.com/spf13/cobra"
)

var versionOutputFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and installed tool information",
	Long: `Display version information including the dbdump build, the Go
runtime, the platform and the versions of installed database tools.

Examples:
  dbdump version
  dbdump version --format json
  dbdump version --format short`,
	Args: cobra.NoArgs,
	RunE: runVersionCmd,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionOutputFormat, "format", "table", "Output format (table, json, short)")
}

type versionInfo struct {
	Version       string            `json:"version"`
	BuildTime     string            `json:"build_time"`
	GitCommit     string            `json:"git_commit"`
	GoVersion     string            `json:"go_version"`
	OS            string            `json:"os"`
	Arch          string            `json:"arch"`
	Engines       []string          `json:"engines"`
	DatabaseTools map[string]string `json:"database_tools"`
}

func runVersionCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionOutputFormat == "short" {
		fmt.Fprintf(out, "dbdump %s\n", cfg.Version)
		return nil
	}

	info := collectVersionInfo(cmd)
	if versionOutputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "dbdump %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildTime)
	fmt.Fprintf(out, "%s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	fmt.Fprintf(out, "Engines: %v\n", info.Engines)
	fmt.Fprintln(out, "Database tools:")
	if len(info.DatabaseTools) == 0 {
		fmt.Fprintln(out, "  (none detected)")
		return nil
	}
	names := make([]string, 0, len(info.DatabaseTools))
	for name := range info.DatabaseTools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %s\n", name+":", info.DatabaseTools[name])
	}
	return nil
}

func collectVersionInfo(cmd *cobra.Command) versionInfo {
	info := versionInfo{
		Version:       cfg.Version,
		BuildTime:     cfg.BuildTime,
		GitCommit:     cfg.GitCommit,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		Engines:       builder.Engines(),
		DatabaseTools: make(map[string]string),
	}

	v := tools.NewValidator(log)
	for _, req := range tools.EngineTools("") {
		st, err := v.Find(cmd.Context(), req.Name)
		if err == nil && st.Version != "" {
			info.DatabaseTools[st.Name] = st.Version
		}
	}
	return info
}
