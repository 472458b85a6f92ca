package crossfilter

import "github.com/batamp/batamp-explorer/internal/logger"

// GetLogger returns the crossfilter module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("crossfilter")
}
