package detail

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/views"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Command creates the detail command, which prints the rollups for one site,
// detector or hexagon.
func Command(ctx *app.Context) *cobra.Command {
	var (
		filters app.FilterFlags
		species string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "detail <siteId|detId|h3l4..h3l8> <id>",
		Short: "Print the detail panel for one site, detector or hexagon",
		Long: `Print totals by species, month, year and detector for one entity.
Detail panels always cover all data for the entity; filters given here only
control whether the filters-not-applied notice is shown.`,
		Example: `  batamp detail siteId 1042
  batamp detail detId 77 --value-field detectionNights --species mylu`,
		Args: cobra.ExactArgs(2),
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

			d, err := ctx.NewDetailService(s).ForSession(s, args[0], args[1])
			if err != nil {
				return err
			}
			if species != "" {
				if w := d.SpeciesWarning(species); w != "" {
					d.Warnings = append(slices.Clip(d.Warnings), w)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return writeDetail(cmd.OutOrStdout(), d)
		},
	}

	cmd.Flags().StringArrayVarP(&filters.Filters, "filter", "f", nil, "Active selections: field=value[,value...] (repeatable)")
	cmd.Flags().StringArrayVar(&filters.Ranges, "range", nil, "Active numeric range: field=lo:hi (repeatable)")
	cmd.Flags().StringVar(&filters.Bounds, "bounds", "", "Active map bounds: xmin,ymin,xmax,ymax")
	cmd.Flags().StringVar(&species, "species", "", "Warn when this species code was never detected")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the detail as JSON")

	return cmd
}

func writeDetail(w io.Writer, d *views.Detail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s %v\n", d.EntityField, d.ID)
	for _, n := range d.Notices {
		fmt.Fprintf(tw, "%s\n", n)
	}
	for _, warning := range d.Warnings {
		fmt.Fprintf(tw, "%s\n", warning)
	}
	fmt.Fprintf(tw, "%s %s\n", views.FormatNumber(d.Total), views.QuantityLabel(d.MetricLabel, d.Total))
	fmt.Fprintf(tw, "%s detectors, %s nights monitored\n",
		views.FormatNumber(float64(d.Detectors)), views.FormatNumber(d.DetectorNights))

	if len(d.BySpecies) > 0 {
		fmt.Fprintf(tw, "\nSpecies\t%s\tdetections\n", d.MetricLabel)
		for _, s := range d.BySpecies {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Label, views.FormatNumber(s.Total), views.FormatNumber(s.Detections))
		}
	}

	if len(d.BySpeciesMonth) > 0 {
		fmt.Fprint(tw, "\nSeasonality")
		for _, m := range monthNames {
			fmt.Fprintf(tw, "\t%s", m)
		}
		fmt.Fprintln(tw)
		for _, sm := range d.BySpeciesMonth {
			fmt.Fprintf(tw, "%s", sm.Species)
			for _, v := range sm.Months {
				fmt.Fprintf(tw, "\t%s", views.FormatNumber(v))
			}
			fmt.Fprintln(tw)
		}
	}

	if len(d.ByYear) > 0 {
		fmt.Fprintf(tw, "\nYear\t%s\n", d.MetricLabel)
		for _, y := range d.ByYear {
			fmt.Fprintf(tw, "%d\t%s\n", y.Year, views.FormatNumber(y.Total))
		}
	}

	if len(d.ByDetector) > 0 {
		fmt.Fprintf(tw, "\nDetector\tSite\tType\t%s\tnights monitored\n", d.MetricLabel)
		for _, det := range d.ByDetector {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", det.DetID, det.SiteName, det.CountType,
				views.FormatNumber(det.Total), views.FormatNumber(det.DetectorNights))
		}
	}

	return tw.Flush()
}
