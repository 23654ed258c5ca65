// env.go - Environment variable configuration and validation for Vertigini-VR
package conf

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Spatial runtime configuration
		{"spatial.drymix", "VERTIGINI_DRYMIX", validateEnvUnitFraction},
		{"spatial.reverb.enabled", "VERTIGINI_REVERB", validateEnvBool},
		{"spatial.reverb.mix", "VERTIGINI_REVERB_MIX", validateEnvReverbMix},
		{"spatial.accelerated", "VERTIGINI_ACCELERATED", validateEnvBool},
		{"spatial.binaural", "VERTIGINI_BINAURAL", validateEnvBool},
		{"spatial.scene", "VERTIGINI_SCENE", nil},

		// Playback configuration
		{"realtime.audio.device", "VERTIGINI_AUDIO_DEVICE", nil},
		{"realtime.audio.source", "VERTIGINI_AUDIO_SOURCE", nil},

		// Debug switches
		{"debug", "VERTIGINI_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		// Bind the environment variable to the config key
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and a validation function is provided
		if binding.Validate == nil {
			continue
		}
		value, set := os.LookupEnv(binding.EnvVar)
		if !set {
			continue
		}
		if err := binding.Validate(value); err != nil {
			warnings = append(warnings, fmt.Sprintf("Invalid value for %s: %v", binding.EnvVar, err))
		}
	}

	for _, warning := range warnings {
		log.Println(warning)
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("expected a boolean, got %q", value)
	}
	return nil
}

func validateEnvUnitFraction(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", value)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("expected a value between 0 and 1, got %v", f)
	}
	return nil
}

func validateEnvReverbMix(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", value)
	}
	if f < 0 || f > 10 {
		return fmt.Errorf("expected a value between 0 and 10, got %v", f)
	}
	return nil
}
