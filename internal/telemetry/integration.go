// Package telemetry - integration with the error handling system
package telemetry

import (
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
)

// InitializeErrorIntegration sets up the error package to use telemetry when enabled
func InitializeErrorIntegration() {
	settings := conf.GetSettings()
	enabled := settings != nil && settings.Sentry.Enabled

	reporter := errors.NewSentryReporter(enabled)
	errors.SetTelemetryReporter(reporter)

	// Set the privacy scrubbing function
	errors.SetPrivacyScrubber(privacy.ScrubMessage)
}

// UpdateErrorIntegration updates the error integration when telemetry settings change
func UpdateErrorIntegration(enabled bool) {
	reporter := errors.NewSentryReporter(enabled)
	errors.SetTelemetryReporter(reporter)
}
