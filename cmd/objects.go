package cmd

import (
	"encoding/json"
	"fmt"

	"dbdump/internal/database"

	"github.com/spf13/cobra"
)

var objectsFormat string

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "List the schemas and tables a job can include or exclude",
	Long: `Connect to the job's database and list its schemas and tables, the
values accepted by includeSchemas, excludeSchemas, includeTables and
excludeTables.

Examples:
  dbdump objects --job app.yaml
  dbdump objects --job shop.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: runObjects,
}

func init() {
	rootCmd.AddCommand(objectsCmd)
	objectsCmd.Flags().StringVar(&objectsFormat, "format", "text", "Output format (text, json)")
}

type schemaTables struct {
	Schema string   `json:"schema,omitempty"`
	Tables []string `json:"tables"`
}

func runObjects(cmd *cobra.Command, args []string) error {
	jf, err := loadJob(false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, jf.Connection, log)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog := db.Catalog()
	schemas, err := catalog.ListSchemas(ctx)
	if err != nil {
		return err
	}
	if len(schemas) == 0 {
		schemas = []string{""}
	}

	var result []schemaTables
	for _, schema := range schemas {
		tables, err := catalog.ListTables(ctx, schema)
		if err != nil {
			return fmt.Errorf("failed to list tables of %q: %w", schema, err)
		}
		result = append(result, schemaTables{Schema: schema, Tables: tables})
	}

	out := cmd.OutOrStdout()
	if objectsFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	for _, st := range result {
		indent := ""
		if st.Schema != "" {
			fmt.Fprintln(out, st.Schema)
			indent = "  "
		}
		for _, t := range st.Tables {
			fmt.Fprintln(out, indent+t)
		}
	}
	return nil
}
