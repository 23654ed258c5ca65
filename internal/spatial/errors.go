package spatial

import (
	"github.com/izzarra/Vertigini-VR/internal/errors"
)

// Component name for error tracking.
const ComponentSpatial = "spatial"

// Sentinel errors for listener operations. These carry component and
// category metadata so telemetry can aggregate them without scrubbing.
var (
	// ErrNoBaker is returned by BeginBake when no baking service was injected.
	ErrNoBaker = errors.Newf("no baking service attached to listener").
			Component(ComponentSpatial).
			Category(errors.CategoryBake).
			Context("resource", "baker").
			Build()

	// ErrListenerDestroyed is returned by operations that require a live
	// listener after Detach has completed.
	ErrListenerDestroyed = errors.Newf("listener already destroyed").
				Component(ComponentSpatial).
				Category(errors.CategoryState).
				Context("resource", "listener").
				Build()
)
