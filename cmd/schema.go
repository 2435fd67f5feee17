package cmd

import (
	"encoding/json"

	"dbdump/internal/builder"
	"dbdump/internal/settings"

	"github.com/spf13/cobra"
)

var schemaFlags jobFlags

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the settings schema evaluated against a job",
	Long: `Print the settings sections of an engine as JSON, with visibility,
validation messages and current values computed for the job. Renderers
call this again after every change.

Examples:
  dbdump schema --engine postgresql
  dbdump schema --job app.yaml --mode restore --set format=plain`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaFlags.register(schemaCmd, true)
}

type schemaOutput struct {
	Engine   string                  `json:"engine"`
	Mode     builder.Mode            `json:"mode"`
	Features builder.Features        `json:"features"`
	Sections []settings.SectionState `json:"sections"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	mode, err := schemaFlags.builderMode()
	if err != nil {
		return err
	}
	jc, err := openJob(cmd.Context(), mode, &schemaFlags, true, false)
	if err != nil {
		return err
	}
	defer jc.Close()

	b := jc.builder
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(schemaOutput{
		Engine:   b.Engine(),
		Mode:     b.Mode(),
		Features: b.SupportedFeatures(),
		Sections: b.SettingsSections().Evaluate(b.Config()),
	})
}
