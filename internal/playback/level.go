package playback

import "math"

// clipThreshold marks a float32 sample as touching full scale.
const clipThreshold = 0.999

// AudioLevelData holds one block's output level for metrics and the API.
type AudioLevelData struct {
	Level    int    `json:"level"`    // 0-100
	Clipping bool   `json:"clipping"` // true if clipping is detected
	Source   string `json:"source"`   // source identifier
}

// CalculateAudioLevel calculates the RMS of a float32 sample block and maps
// it onto a 0-100 scale.
func CalculateAudioLevel(samples []float32, source string) AudioLevelData {
	if len(samples) == 0 {
		return AudioLevelData{Level: 0, Clipping: false, Source: source}
	}

	var sum float64
	isClipping := false
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if s >= clipThreshold || s <= -clipThreshold {
			isClipping = true
		}
	}

	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return AudioLevelData{Level: 0, Clipping: isClipping, Source: source}
	}

	// Full scale is 1.0, so dBFS is 20*log10(rms). Map -60..-10 dB onto
	// 0-100 to keep the gauge sensitive at listening levels.
	db := 20 * math.Log10(rms)
	scaledLevel := (db + 60) * (100.0 / 50.0)

	// If the audio is clipping, ensure the level is at or near 100
	if isClipping {
		scaledLevel = math.Max(scaledLevel, 95)
	}

	if scaledLevel < 0 {
		scaledLevel = 0
	} else if scaledLevel > 100 {
		scaledLevel = 100
	}

	return AudioLevelData{
		Level:    int(scaledLevel),
		Clipping: isClipping,
		Source:   source,
	}
}
