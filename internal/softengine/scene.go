// Package softengine provides working software implementations of the
// spatial engine contracts: a YAML-driven environment, a Schroeder
// reverberator for the realtime blend path, a convolution mixer for the
// accelerated path, and a probe baker that synthesizes impulse responses.
package softengine

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// Component name for error tracking.
const ComponentSoftengine = "softengine"

// RoomDimensions describes the scene's bounding box in meters. The room is
// centered on the origin.
type RoomDimensions struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Depth  float64 `yaml:"depth"`
}

// SceneProbe is one bakeable probe volume.
type SceneProbe struct {
	Name   string     `yaml:"name"`
	Center [3]float32 `yaml:"center"`
	Radius float32    `yaml:"radius"`
}

// SceneDescriptor is the YAML scene document the soft environment loads.
type SceneDescriptor struct {
	Name       string         `yaml:"name"`
	Room       RoomDimensions `yaml:"room"`
	Absorption float64        `yaml:"absorption"`
	// ReadinessDelayFrames makes the first N scene queries return an invalid
	// handle, mimicking scene streaming.
	ReadinessDelayFrames int          `yaml:"readiness_delay_frames"`
	Probes               []SceneProbe `yaml:"probes"`
}

// LoadSceneDescriptor reads and validates a scene document.
func LoadSceneDescriptor(path string) (*SceneDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileIO).
			Context("scene", privacy.SanitizePath(path)).
			Build()
	}

	var desc SceneDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileParsing).
			Context("scene", privacy.SanitizePath(path)).
			Build()
	}

	desc.applyDefaults()
	return &desc, nil
}

// DefaultScene returns a small demo room used when no scene file is
// configured.
func DefaultScene() *SceneDescriptor {
	desc := &SceneDescriptor{
		Name:       "default-room",
		Room:       RoomDimensions{Width: 10, Height: 3, Depth: 10},
		Absorption: 0.3,
		Probes: []SceneProbe{
			{Name: "center", Center: [3]float32{0, 1.5, 0}, Radius: 4},
		},
	}
	desc.applyDefaults()
	return desc
}

func (d *SceneDescriptor) applyDefaults() {
	if d.Name == "" {
		d.Name = "scene"
	}
	if d.Room.Width <= 0 {
		d.Room.Width = 10
	}
	if d.Room.Height <= 0 {
		d.Room.Height = 3
	}
	if d.Room.Depth <= 0 {
		d.Room.Depth = 10
	}
	if d.Absorption <= 0 {
		d.Absorption = 0.3
	}
	if d.Absorption < 0.05 {
		d.Absorption = 0.05
	}
	if d.Absorption > 0.95 {
		d.Absorption = 0.95
	}
	if d.ReadinessDelayFrames < 0 {
		d.ReadinessDelayFrames = 0
	}
	if len(d.Probes) == 0 {
		d.Probes = []SceneProbe{{
			Name:   "center",
			Center: [3]float32{0, float32(d.Room.Height / 2), 0},
			Radius: float32(math.Min(d.Room.Width, d.Room.Depth) / 2),
		}}
	}
}

// Volume returns the room volume in cubic meters.
func (d *SceneDescriptor) Volume() float64 {
	return d.Room.Width * d.Room.Height * d.Room.Depth
}

// SurfaceArea returns the room's total wall/floor/ceiling area.
func (d *SceneDescriptor) SurfaceArea() float64 {
	w, h, dp := d.Room.Width, d.Room.Height, d.Room.Depth
	return 2 * (w*h + w*dp + h*dp)
}

// ReverbTime estimates RT60 with Sabine's formula, clamped to a range the
// reverberator handles gracefully.
func (d *SceneDescriptor) ReverbTime() float64 {
	rt := 0.161 * d.Volume() / (d.Absorption * d.SurfaceArea())
	return math.Min(math.Max(rt, 0.2), 8.0)
}

// MaxDimension returns the largest room extent.
func (d *SceneDescriptor) MaxDimension() float64 {
	return math.Max(d.Room.Width, math.Max(d.Room.Height, d.Room.Depth))
}

// ProbeRegions converts the descriptor's probes to the runtime type.
func (d *SceneDescriptor) ProbeRegions() []spatial.ProbeRegion {
	regions := make([]spatial.ProbeRegion, 0, len(d.Probes))
	for _, p := range d.Probes {
		regions = append(regions, spatial.ProbeRegion{
			Name:   p.Name,
			Center: p.Center,
			Radius: p.Radius,
		})
	}
	return regions
}
