// Package observability provides Prometheus metrics functionality for monitoring the Vertigini-VR runtime.
// Sentry-related monitoring and error telemetry are handled in the telemetry package.
package observability

import (
	"log/slog"

	"github.com/izzarra/Vertigini-VR/internal/logging"
)

// serviceLogger returns the structured logger for this package. It falls back
// to the default slog logger until logging has been initialized.
func serviceLogger() *slog.Logger {
	if l := logging.ForService("telemetry"); l != nil {
		return l
	}
	return slog.Default()
}
