// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation type constants used in switch statements across metrics.
// These constants define the categories of operations that can be recorded.
const (
	// OpRender represents audio render operations.
	OpRender = "render"
	// OpFrameUpdate represents per-frame pose update operations.
	OpFrameUpdate = "frame_update"
	// OpLazyInit represents deferred simulator initialization operations.
	OpLazyInit = "lazy_init"
	// OpDetach represents listener teardown operations.
	OpDetach = "detach"
	// OpBakeBegin represents bake start operations.
	OpBakeBegin = "bake_begin"
	// OpBakeEnd represents bake stop operations.
	OpBakeEnd = "bake_end"
	// OpSceneResolve represents scene handle resolution operations.
	OpSceneResolve = "scene_resolve"
	// OpIRLoad represents impulse response load operations.
	OpIRLoad = "ir_load"
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbUpdate represents database update operations.
	OpDbUpdate = "db_update"
	// OpDbDelete represents database delete operations.
	OpDbDelete = "db_delete"
)

// Label value constants used for metric labels.
const (
	// LabelSuccess is the status label for successful operations.
	LabelSuccess = "success"
	// LabelError is the status label for failed operations.
	LabelError = "error"
	// LabelDry is the mix fraction kind label for the dry path.
	LabelDry = "dry"
	// LabelReverb is the mix fraction kind label for the reverb path.
	LabelReverb = "reverb"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// Time and conversion constants.
const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
	// MillisecondsPerSecond is the conversion factor from seconds to milliseconds.
	MillisecondsPerSecond = 1000.0
	// PercentageFactor is the multiplier to convert ratio to percentage.
	PercentageFactor = 100.0
)
