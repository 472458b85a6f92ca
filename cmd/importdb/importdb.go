package importdb

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/datastore"
)

// Command creates the import command, which copies the detector and species
// tables into the configured database.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the detector and species tables into the database",
		Long: `Read the detector and species tables from feather or CSV files and
replace the contents of the configured database with them. Afterwards the
dataset can be loaded with --format database.`,
		Example: `  batamp import --detectors detectors.feather --species species.feather --db batamp.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := ctx.ReadTables(cmd.Context())
			if err != nil {
				return err
			}

			db, err := datastore.Open(ctx.Settings.Data.Database,
				datastore.WithLogger(ctx.Logger()),
				datastore.WithMetrics(ctx.Recorder()))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.Import(cmd.Context(), tables); err != nil {
				return err
			}
			st, err := db.Stats(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d detectors and %d species detection rows into %s database\n",
				st.Detectors, st.SpeciesCounts, ctx.Settings.Data.Database.Type)
			return err
		},
	}
}
