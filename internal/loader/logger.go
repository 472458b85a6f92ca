package loader

import "github.com/batamp/batamp-explorer/internal/logger"

// GetLogger returns the loader package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("loader")
}
