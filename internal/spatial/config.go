package spatial

import "log/slog"

// Config holds the per-listener rendering configuration fixed at attach time.
type Config struct {
	// Name identifies the listener in logs and metrics.
	Name string

	// Format is the audio stream the listener renders.
	Format AudioFormat

	// ReverbEnabled turns on the realtime reverb blend path.
	ReverbEnabled bool
	// AcceleratedEnabled routes rendering through the indirect mixer instead
	// of the blend path.
	AcceleratedEnabled bool
	// BinauralEnabled is forwarded to the simulator and mixer.
	BinauralEnabled bool

	// Simulation selects "realtime" or "baked" simulation.
	Simulation string
	// ReverbType selects "parametric" or "convolution" reverb.
	ReverbType string

	// DryMixFraction weights the dry input in the blend path, range [0,1].
	DryMixFraction float32
	// ReverbMixFraction is forwarded to the simulator, range [0,10].
	ReverbMixFraction float32

	// BakeRegions restricts listener-triggered bakes to the named probe
	// regions. Empty means every region the environment reports.
	BakeRegions []string
}

// normalize clamps the mix fractions to their documented ranges and fills
// zero-value format fields with defaults. Clamping is logged at debug level
// so a miswritten config is visible without failing attach.
func (c *Config) normalize(logger *slog.Logger) {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Format.SampleRate == 0 {
		c.Format.SampleRate = 48000
	}
	if c.Format.Channels == 0 {
		c.Format.Channels = 2
	}
	if c.Format.BlockSize == 0 {
		c.Format.BlockSize = 512
	}

	if c.DryMixFraction < 0 || c.DryMixFraction > 1 {
		clamped := clampFraction(c.DryMixFraction, 0, 1)
		logger.Debug("dry mix fraction clamped",
			"listener", c.Name,
			"configured", c.DryMixFraction,
			"clamped", clamped)
		c.DryMixFraction = clamped
	}
	if c.ReverbMixFraction < 0 || c.ReverbMixFraction > 10 {
		clamped := clampFraction(c.ReverbMixFraction, 0, 10)
		logger.Debug("reverb mix fraction clamped",
			"listener", c.Name,
			"configured", c.ReverbMixFraction,
			"clamped", clamped)
		c.ReverbMixFraction = clamped
	}
}

func clampFraction(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
