package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/izzarra/Vertigini-VR/cmd"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/telemetry"
)

// Populated by the linker at build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	// The anonymous system identifier survives reinstalls next to the
	// config file and keys telemetry events.
	if configPaths, err := conf.GetDefaultConfigPaths(); err == nil && len(configPaths) > 0 {
		if id, err := telemetry.LoadOrCreateSystemID(configPaths[0]); err == nil {
			settings.SystemID = id
		}
	}

	if err := telemetry.InitSentry(settings); err != nil {
		slog.Warn("telemetry initialization failed", "error", err)
	}
	telemetry.InitializeErrorIntegration()

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
