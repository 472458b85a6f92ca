package views

import "github.com/batamp/batamp-explorer/internal/logger"

// GetLogger returns the views package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("views")
}
