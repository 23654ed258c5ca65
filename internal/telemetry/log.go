package telemetry

import (
	"log/slog"

	"github.com/izzarra/Vertigini-VR/internal/logging"
)

// serviceLogger is the telemetry service logger, nil until the logging
// package has been initialized.
var serviceLogger *slog.Logger

// InitServiceLogger attaches the telemetry package to the global structured
// logger. Safe to call more than once.
func InitServiceLogger() {
	serviceLogger = logging.ForService("telemetry")
}

// logTelemetryInfo logs a message to the telemetry service logger if available,
// otherwise falls back to the provided fallback logger.
// If fallbackLogger is nil, the message is only logged if serviceLogger is available.
func logTelemetryInfo(fallbackLogger *slog.Logger, message string, keysAndValues ...any) {
	if serviceLogger != nil {
		serviceLogger.Info(message, keysAndValues...)
	} else if fallbackLogger != nil {
		fallbackLogger.Info(message, keysAndValues...)
	}
}

// logTelemetryDebug logs a debug message to the telemetry service logger if available,
// otherwise falls back to the provided fallback logger.
func logTelemetryDebug(fallbackLogger *slog.Logger, message string, keysAndValues ...any) {
	if serviceLogger != nil {
		serviceLogger.Debug(message, keysAndValues...)
	} else if fallbackLogger != nil {
		fallbackLogger.Debug(message, keysAndValues...)
	}
}
