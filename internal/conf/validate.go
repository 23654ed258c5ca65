// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"log"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate Realtime settings
	if err := validateRealtimeSettings(&settings.Realtime); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Audio settings
	if err := validateAudioSettings(&settings.Realtime.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Spatial settings
	if err := validateSpatialSettings(&settings.Spatial); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Bake settings
	if err := validateBakeSettings(&settings.Bake); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateRealtimeSettings validates the Realtime-specific settings
func validateRealtimeSettings(settings *RealtimeSettings) error {
	// Check if frame rate is within a sane range
	if settings.FrameRate < 1 || settings.FrameRate > 1000 {
		return fmt.Errorf("realtime frame rate must be between 1 and 1000, got %d", settings.FrameRate)
	}

	if settings.API.Enabled && settings.API.Listen == "" {
		return errors.New("realtime API listen address is required when enabled")
	}

	if settings.Telemetry.Enabled && settings.Telemetry.Listen == "" {
		return errors.New("realtime telemetry listen address is required when enabled")
	}

	if settings.API.CacheTTL < 0 {
		return errors.New("realtime API cache TTL must be non-negative")
	}

	return nil
}

// validateAudioSettings validates the playback audio settings
func validateAudioSettings(settings *AudioSettings) error {
	var errs []string

	if settings.SampleRate < 8000 || settings.SampleRate > 192000 {
		errs = append(errs, "audio sample rate must be between 8000 and 192000 Hz")
	}

	if settings.Channels != 1 && settings.Channels != 2 {
		errs = append(errs, "audio channel count must be 1 or 2")
	}

	// Block size bounds chosen to keep render callbacks between roughly 1 and
	// 200 ms at common sample rates
	if settings.BlockSize < 64 || settings.BlockSize > 8192 {
		errs = append(errs, "audio block size must be between 64 and 8192 frames")
	}

	if settings.Source == "" {
		errs = append(errs, "audio source must not be empty")
	}

	if settings.Gain < 0 || settings.Gain > 4 {
		errs = append(errs, "audio gain must be between 0 and 4")
	}

	if settings.Source == "tone" && settings.ToneHz <= 0 {
		errs = append(errs, "tone frequency must be positive when the tone source is selected")
	}

	if len(errs) > 0 {
		return fmt.Errorf("audio settings errors: %v", errs)
	}

	return nil
}

// validateSpatialSettings validates the listener runtime settings.
// Mix fractions outside their documented ranges are clamped rather than
// rejected so a hand-edited config cannot take the renderer down.
func validateSpatialSettings(settings *SpatialSettings) error {
	if settings.DryMix < 0 {
		log.Printf("spatial.drymix %.3f below range, clamping to 0", settings.DryMix)
		settings.DryMix = 0
	}
	if settings.DryMix > 1 {
		log.Printf("spatial.drymix %.3f above range, clamping to 1", settings.DryMix)
		settings.DryMix = 1
	}

	if settings.Reverb.Mix < 0 {
		log.Printf("spatial.reverb.mix %.3f below range, clamping to 0", settings.Reverb.Mix)
		settings.Reverb.Mix = 0
	}
	if settings.Reverb.Mix > 10 {
		log.Printf("spatial.reverb.mix %.3f above range, clamping to 10", settings.Reverb.Mix)
		settings.Reverb.Mix = 10
	}

	switch settings.Simulation {
	case "realtime", "baked":
	default:
		return fmt.Errorf("spatial simulation type must be \"realtime\" or \"baked\", got %q", settings.Simulation)
	}

	switch settings.ReverbType {
	case "parametric", "convolution":
	default:
		return fmt.Errorf("spatial reverb type must be \"parametric\" or \"convolution\", got %q", settings.ReverbType)
	}

	if settings.Accelerated && settings.IRPath == "" {
		// Not fatal: the mixer zero-fills until an impulse response is loaded
		log.Println("spatial.accelerated enabled without spatial.irpath, accelerated path will render silence until one is baked")
	}

	return nil
}

// validateBakeSettings validates the bake workflow settings
func validateBakeSettings(settings *BakeSettings) error {
	var errs []string

	if settings.Output == "" {
		errs = append(errs, "bake output directory must not be empty")
	}

	if settings.Database == "" {
		errs = append(errs, "bake database path must not be empty")
	}

	if settings.Parallelism < 0 {
		errs = append(errs, "bake parallelism must be non-negative")
	}

	if settings.IRSeconds <= 0 || settings.IRSeconds > 30 {
		errs = append(errs, "bake impulse response length must be between 0 and 30 seconds")
	}

	if len(errs) > 0 {
		return fmt.Errorf("bake settings errors: %v", errs)
	}

	return nil
}
