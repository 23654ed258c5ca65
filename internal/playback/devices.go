package playback

import (
	"github.com/gen2brain/malgo"

	"github.com/izzarra/Vertigini-VR/internal/errors"
)

// DeviceSummary describes one enumerable output device.
type DeviceSummary struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// ListOutputDevices enumerates playback devices on the platform backend.
func ListOutputDevices() ([]DeviceSummary, string, error) {
	backends, backendName := platformBackends()

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, backendName, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Context("backend", backendName).
			Build()
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, backendName, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Context("backend", backendName).
			Build()
	}

	devices := make([]DeviceSummary, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceSummary{
			Name:      infos[i].Name(),
			IsDefault: infos[i].IsDefault != 0,
		})
	}
	return devices, backendName, nil
}
