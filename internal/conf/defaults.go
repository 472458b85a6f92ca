package conf

import (
	"github.com/spf13/viper"

	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/views"
)

// setDefaultConfig sets default values for every setting.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("data.format", FormatFeather)
	v.SetDefault("data.detectors", "data/detectors.feather")
	v.SetDefault("data.species", "data/spp_detections.feather")
	v.SetDefault("data.database.type", "sqlite")
	v.SetDefault("data.database.sqlite.path", "data/batamp.db")
	v.SetDefault("data.database.mysql.port", 3306)
	v.SetDefault("data.database.mysql.database", "batamp")

	v.SetDefault("crossfilter.valuefield", "")
	v.SetDefault("crossfilter.filtersfile", "")
	v.SetDefault("crossfilter.prefilter", "")

	v.SetDefault("views.detailttl", views.DefaultDetailTTL)
	v.SetDefault("views.detailcleanup", views.DefaultDetailCleanup)
	v.SetDefault("views.binmode", "count")

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", "debug")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("metrics.textfile", "")
}
