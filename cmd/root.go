package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batamp/batamp-explorer/cmd/detail"
	"github.com/batamp/batamp-explorer/cmd/explore"
	"github.com/batamp/batamp-explorer/cmd/importdb"
	"github.com/batamp/batamp-explorer/cmd/mapdata"
	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/conf"
	"github.com/batamp/batamp-explorer/internal/errors"
)

const initConfigName = "init-config"

// RootCommand creates and returns the root command.
func RootCommand(ctx *app.Context) *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "batamp",
		Short:        "Explore bat acoustic monitoring detections",
		Long:         "Cross-filter bat detections by species, season, year and region, and summarise sites and detectors.",
		Version:      ctx.Build.String(),
		SilenceUsage: true,
	}

	setupFlags(rootCmd, v, &configFile)

	rootCmd.AddCommand(
		explore.Command(ctx),
		detail.Command(ctx),
		mapdata.Command(ctx),
		importdb.Command(ctx),
		configCommand(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == initConfigName {
			return nil
		}
		settings, err := conf.LoadWith(v, configFile)
		if err != nil {
			return err
		}
		return ctx.Init(settings)
	}
	return rootCmd
}

// Execute runs root and then closes ctx, whether or not the command failed,
// so metrics, telemetry and log files are flushed on errors too.
func Execute(root *cobra.Command, ctx *app.Context) error {
	err := root.Execute()
	return errors.Join(err, ctx.Close())
}

// setupFlags defines the global flags and binds them to v.
func setupFlags(rootCmd *cobra.Command, v *viper.Viper, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search . and the user config directory)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("format", "", "Dataset format: feather, csv or database")
	flags.String("detectors", "", "Path to the detectors table")
	flags.String("species", "", "Path to the species detections table")
	flags.String("db", "", "Path to the SQLite database")
	flags.String("value-field", "", "Metric to total, e.g. detections, detectionRate or species")
	flags.String("filters", "", "YAML file with filter definitions")
	flags.String("prefilter", "", "Restrict all data to field=value, e.g. countType=a")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	bindings := map[string]string{
		"debug":                     "debug",
		"data.format":               "format",
		"data.detectors":            "detectors",
		"data.species":              "species",
		"data.database.sqlite.path": "db",
		"crossfilter.valuefield":    "value-field",
		"crossfilter.filtersfile":   "filters",
		"crossfilter.prefilter":     "prefilter",
		"metrics.textfile":          "metrics-textfile",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// configCommand writes the default configuration file.
func configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   initConfigName + " [path]",
		Short: "Write the default config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Created default config file at:", path)
			return err
		},
	}
}
