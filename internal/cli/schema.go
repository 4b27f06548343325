package cli

import (
	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/output"
	"github.com/ralt/alpkit/internal/schema"
	"github.com/spf13/cobra"
)

// schemaRoots maps each schema name to the type printed for it.
var schemaRoots = map[string]any{
	"apk":      apk.Summary{},
	"apkbuild": models.Apkbuild{},
}

// NewSchemaCmd creates the schema command
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema (apk | apkbuild)",
		Short: "Print the JSON Schema of the apk or apkbuild output",
		Long: `Prints a JSON Schema (draft 2019-09) describing the JSON document
the apk or apkbuild command writes for a single input.`,
		ValidArgs: []string{"apk", "apkbuild"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.Write(cmd.OutOrStdout(), output.FormatJSON, schema.Generate(schemaRoots[args[0]]))
		},
	}
}
