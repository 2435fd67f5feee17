package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	planFlags  jobFlags
	planFormat string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the command a job would run",
	Long: `Build the command for the job without running anything. Passwords
are passed through the environment and shown redacted.

Examples:
  dbdump plan --job app.yaml
  dbdump plan --job app.yaml --mode restore --set inputFile=app.dump
  dbdump plan --job app.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planFlags.register(planCmd, true)
	planCmd.Flags().StringVar(&planFormat, "format", "text", "Output format (text, json)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	mode, err := planFlags.builderMode()
	if err != nil {
		return err
	}
	jc, err := openJob(cmd.Context(), mode, &planFlags, false, false)
	if err != nil {
		return err
	}
	defer jc.Close()

	built, err := jc.builder.BuildCommand()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(built)
	}
	for i, step := range built.Steps {
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, step.Kind, step.String())
	}
	return nil
}
