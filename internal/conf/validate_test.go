package conf

import (
	"strings"
	"testing"
)

// validSettings returns a settings struct that passes validation, for tests
// to mutate one field at a time.
func validSettings() *Settings {
	s := &Settings{}
	s.Realtime.FrameRate = 60
	s.Realtime.Audio = AudioSettings{
		SampleRate: 48000,
		Channels:   2,
		BlockSize:  512,
		Source:     "tone",
		ToneHz:     220,
		Gain:       0.8,
	}
	s.Realtime.API = APISettings{Enabled: true, Listen: "0.0.0.0:8080", CacheTTL: 5}
	s.Realtime.Telemetry = TelemetrySettings{Enabled: false, Listen: "0.0.0.0:8090"}
	s.Spatial = SpatialSettings{
		DryMix:     1.0,
		Reverb:     ReverbSettings{Enabled: true, Mix: 1.0},
		Binaural:   true,
		Simulation: "realtime",
		ReverbType: "parametric",
		Scene:      "scene.yaml",
	}
	s.Bake = BakeSettings{
		Output:    "bakes/",
		Database:  "bakes.db",
		IRSeconds: 1.5,
	}
	return s
}

func TestValidateSettingsAccepted(t *testing.T) {
	if err := ValidateSettings(validSettings()); err != nil {
		t.Fatalf("expected valid settings to pass validation, got: %v", err)
	}
}

func TestValidateSettingsRejected(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{
			name:    "zero frame rate",
			mutate:  func(s *Settings) { s.Realtime.FrameRate = 0 },
			wantMsg: "frame rate",
		},
		{
			name:    "bad sample rate",
			mutate:  func(s *Settings) { s.Realtime.Audio.SampleRate = 100 },
			wantMsg: "sample rate",
		},
		{
			name:    "bad channel count",
			mutate:  func(s *Settings) { s.Realtime.Audio.Channels = 6 },
			wantMsg: "channel count",
		},
		{
			name:    "tiny block size",
			mutate:  func(s *Settings) { s.Realtime.Audio.BlockSize = 16 },
			wantMsg: "block size",
		},
		{
			name:    "empty audio source",
			mutate:  func(s *Settings) { s.Realtime.Audio.Source = "" },
			wantMsg: "source",
		},
		{
			name:    "unknown simulation type",
			mutate:  func(s *Settings) { s.Spatial.Simulation = "quantum" },
			wantMsg: "simulation type",
		},
		{
			name:    "unknown reverb type",
			mutate:  func(s *Settings) { s.Spatial.ReverbType = "plate" },
			wantMsg: "reverb type",
		},
		{
			name:    "zero IR length",
			mutate:  func(s *Settings) { s.Bake.IRSeconds = 0 },
			wantMsg: "impulse response length",
		},
		{
			name:    "empty bake output",
			mutate:  func(s *Settings) { s.Bake.Output = "" },
			wantMsg: "output directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error to mention %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettingsClampsMixFractions(t *testing.T) {
	tests := []struct {
		name      string
		dryMix    float64
		reverbMix float64
		wantDry   float64
		wantWet   float64
	}{
		{"above range", 1.5, 12.0, 1.0, 10.0},
		{"below range", -0.5, -3.0, 0.0, 0.0},
		{"in range untouched", 0.5, 2.0, 0.5, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.Spatial.DryMix = tt.dryMix
			s.Spatial.Reverb.Mix = tt.reverbMix

			if err := ValidateSettings(s); err != nil {
				t.Fatalf("clamping should not produce an error, got: %v", err)
			}
			if s.Spatial.DryMix != tt.wantDry {
				t.Errorf("DryMix = %v, want %v", s.Spatial.DryMix, tt.wantDry)
			}
			if s.Spatial.Reverb.Mix != tt.wantWet {
				t.Errorf("Reverb.Mix = %v, want %v", s.Spatial.Reverb.Mix, tt.wantWet)
			}
		})
	}
}
