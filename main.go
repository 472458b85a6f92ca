package main

import (
	"os"

	"github.com/batamp/batamp-explorer/cmd"
	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	ctx := app.NewContext(buildinfo.NewContext(version, buildDate))
	if err := cmd.Execute(cmd.RootCommand(ctx), ctx); err != nil {
		os.Exit(1)
	}
}
