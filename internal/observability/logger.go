package observability

import "github.com/batamp/batamp-explorer/internal/logger"

var log = logger.Global().Module("metrics")
