package cmd

import (
	"encoding/json"
	"fmt"

	"dbdump/internal/builder"
	"dbdump/internal/logger"
	"dbdump/internal/tools"

	"github.com/spf13/cobra"
)

var toolsFormat string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Check which dump and restore tools are installed",
	Long: `Look up the external tools each engine runs and report their
paths and versions. With --engine only that engine's tools are checked.

Examples:
  dbdump tools
  dbdump tools --engine mariadb --format json`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringVar(&toolsFormat, "format", "text", "Output format (text, json)")
}

func runTools(cmd *cobra.Command, args []string) error {
	engines := builder.Engines()
	if cfg.Engine != "" {
		engines = []string{cfg.Engine}
	}

	v := tools.NewValidator(log)
	out := cmd.OutOrStdout()
	report := make(map[string][]tools.ToolStatus, len(engines))
	var firstErr error

	for _, engine := range engines {
		statuses, err := v.ValidateTools(cmd.Context(), tools.EngineTools(engine))
		report[engine] = statuses
		if err != nil && firstErr == nil && cfg.Engine != "" {
			firstErr = err
		}
	}

	if toolsFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return firstErr
	}

	for _, engine := range engines {
		fmt.Fprintf(out, "%s\n", engine)
		for _, st := range report[engine] {
			if st.Available {
				logger.Success(out, "  %-14s %s %s", st.Name, st.Path, st.Version)
			} else {
				logger.Failure(out, "  %-14s not found", st.Name)
			}
		}
	}
	return firstErr
}
