package mapdata

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/views"
)

// Command creates the map command, which writes the filtered entities as a
// GeoJSON FeatureCollection and prints the legend.
func Command(ctx *app.Context) *cobra.Command {
	var (
		filters  app.FilterFlags
		field    string
		out      string
		backfill bool
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Write filtered sites, detectors or hexagons as GeoJSON",
		Long: `Write one point per entity with a positive total under the active
filters. Every feature carries its total and a bin color; the legend for the
bins is printed to stderr.`,
		Example: `  batamp map --field h3l6 --filter species=laci --out laci.geojson
  batamp map --value-field detectionRate --filter month=8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.LoadStore(cmd.Context())
			if err != nil {
				return err
			}
			s, err := ctx.NewSession(store)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := filters.Apply(s); err != nil {
				return err
			}

			totals, err := views.EntityTotals(s, field, backfill)
			if err != nil {
				return err
			}
			mode := ctx.BinMode()
			if s.ValueField().Kind == crossfilter.Rate {
				mode = views.ModePercent
			}
			renderer := views.NewRenderer(views.EntityValues(totals), mode)

			fc, err := views.GeoJSON(s, field, renderer)
			if err != nil {
				return err
			}
			data, err := fc.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encoding features: %w", err)
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if _, err := w.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("writing features: %w", err)
			}

			printLegend(cmd.ErrOrStderr(), renderer, s.ValueField().Label(), len(fc.Features), len(totals))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&filters.Filters, "filter", "f", nil, "Select values: field=value[,value...] (repeatable)")
	cmd.Flags().StringArrayVar(&filters.Ranges, "range", nil, "Numeric range: field=lo:hi (repeatable)")
	cmd.Flags().StringVar(&filters.Bounds, "bounds", "", "Map bounds: xmin,ymin,xmax,ymax")
	cmd.Flags().StringVar(&field, "field", "siteId", "Entity field: siteId, detId or h3l4..h3l8")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&backfill, "backfill", false, "Count filtered out entities in the legend bins as zero")

	return cmd
}

func printLegend(w io.Writer, r views.Renderer, label string, features, entities int) {
	fmt.Fprintf(w, "%d of %d entities with %s\n", features, entities, label)
	for _, e := range r.Legend(label) {
		fmt.Fprintf(w, "  %s  %s\n", e.Color, e.Label)
	}
}
