package bakestore

import "time"

// Job lifecycle states.
const (
	JobPending  = "pending"
	JobRunning  = "running"
	JobDone     = "done"
	JobFailed   = "failed"
	JobCanceled = "canceled"
)

// BakeJob is one bake run over a set of probe regions.
type BakeJob struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	StreamID    string     `gorm:"size:64;index" json:"stream_id"`
	Mode        string     `gorm:"size:32" json:"mode"`
	State       string     `gorm:"size:16;index" json:"state"`
	RegionCount int        `json:"region_count"`
	Error       string     `gorm:"size:512" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BakeArtifact is one baked impulse response written to disk.
type BakeArtifact struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"size:36;index" json:"job_id"`
	ProbeName  string    `gorm:"size:64" json:"probe_name"`
	Path       string    `gorm:"size:512" json:"path"`
	SampleRate int       `json:"sample_rate"`
	IRLength   int       `json:"ir_length"`
	PeakLevel  float64   `json:"peak_level"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
