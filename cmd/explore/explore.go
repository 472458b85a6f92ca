package explore

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/views"
)

// Command creates the explore command, which applies filters and prints
// the per-dimension totals.
func Command(ctx *app.Context) *cobra.Command {
	var (
		filters   app.FilterFlags
		fields    []string
		asJSON    bool
		showEmpty bool
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Filter the dataset and print totals per dimension",
		Long: `Apply filters and print, for every dimension, the totals under all
other filters. The header reports the filtered total against the total.`,
		Example: `  batamp explore --filter species=mylu,epfu --filter month=6,7
  batamp explore --value-field detectionRate --bounds -125,40,-110,49 --json`,
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

			for _, field := range fields {
				if _, err := s.Totals(field); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s.Result())
			}
			return writeTable(cmd.OutOrStdout(), s, fields, showEmpty)
		},
	}

	cmd.Flags().StringArrayVarP(&filters.Filters, "filter", "f", nil, "Select values: field=value[,value...] (repeatable)")
	cmd.Flags().StringArrayVar(&filters.Ranges, "range", nil, "Numeric range: field=lo:hi (repeatable)")
	cmd.Flags().StringVar(&filters.Bounds, "bounds", "", "Map bounds: xmin,ymin,xmax,ymax")
	cmd.Flags().StringSliceVar(&fields, "show", nil, "Only print these dimensions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&showEmpty, "show-empty", false, "Print zero buckets of dimensions that hide them")

	return cmd
}

func writeJSON(w io.Writer, result crossfilter.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeTable(w io.Writer, s *crossfilter.Session, fields []string, showEmpty bool) error {
	result := s.Result()
	label := s.ValueField().Label()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s of %s %s\t\n",
		views.FormatNumber(result.FilteredTotal),
		views.FormatNumber(result.Total),
		views.QuantityLabel(label, result.Total))
	if s.HasVisibleFilters() {
		fmt.Fprintf(tw, "filters: %s\t\n", s.State())
	}

	for _, cfg := range s.Configs() {
		if cfg.Internal || (len(fields) > 0 && !slices.Contains(fields, cfg.Field)) {
			continue
		}
		title := cfg.Title
		if title == "" {
			title = cfg.Field
		}
		fmt.Fprintf(tw, "\t\n%s\t\n", title)
		for _, b := range result.Dimensions[cfg.Field] {
			if b.Total == 0 && cfg.HideEmpty && !showEmpty {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t\n", b.Label, views.FormatNumber(b.Total))
		}
	}
	return tw.Flush()
}
