package softengine

import (
	"log/slog"
	"sync/atomic"

	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// sceneHandle is the environment's scene reference. It turns valid once the
// configured readiness delay has elapsed and stays valid afterwards.
type sceneHandle struct {
	name  string
	valid atomic.Bool
}

func (h *sceneHandle) Valid() bool { return h.valid.Load() }

// Environment owns the loaded scene and implements spatial.Environment. The
// readiness delay makes the first N ResolveScene calls return an invalid
// handle so the listener's poll-based initialization path actually polls.
type Environment struct {
	desc   *SceneDescriptor
	handle *sceneHandle
	delay  int64
	calls  atomic.Int64
	logger *slog.Logger
}

// NewEnvironment builds an environment around a scene descriptor. A nil
// descriptor gets the default demo scene.
func NewEnvironment(desc *SceneDescriptor) *Environment {
	if desc == nil {
		desc = DefaultScene()
	}
	logger := logging.ForService("softengine")
	if logger == nil {
		logger = slog.Default()
	}

	env := &Environment{
		desc:   desc,
		handle: &sceneHandle{name: desc.Name},
		delay:  int64(desc.ReadinessDelayFrames),
		logger: logger,
	}
	if env.delay <= 0 {
		env.handle.valid.Store(true)
	}
	return env
}

// ResolveScene returns the scene handle, flipping it valid once the
// readiness delay has been consumed.
func (e *Environment) ResolveScene() spatial.SceneHandle {
	if !e.handle.valid.Load() {
		if e.calls.Add(1) > e.delay {
			e.handle.valid.Store(true)
			e.logger.Debug("scene handle exported",
				"scene", e.desc.Name,
				"delayed_queries", e.delay)
		}
	}
	return e.handle
}

// RendererReady reports whether the environmental renderer accepts work. The
// soft renderer is ready as soon as the scene handle is valid.
func (e *Environment) RendererReady() bool {
	return e.handle.valid.Load()
}

// ProbeRegions lists the scene's bakeable probe volumes.
func (e *Environment) ProbeRegions() []spatial.ProbeRegion {
	return e.desc.ProbeRegions()
}

// Descriptor exposes the loaded scene document.
func (e *Environment) Descriptor() *SceneDescriptor {
	return e.desc
}
