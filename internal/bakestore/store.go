// Package bakestore persists the bake catalog: one row per bake job and one
// per baked impulse-response artifact, on SQLite through gorm.
package bakestore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
)

// Component name for error tracking.
const ComponentBakestore = "bakestore"

const (
	tableJobs      = "bake_jobs"
	tableArtifacts = "bake_artifacts"

	defaultListLimit = 50
)

// Store is the bake catalog. All methods are safe for concurrent use; gorm
// serializes access to the underlying SQLite handle.
type Store struct {
	db      *gorm.DB
	path    string
	logger  *slog.Logger
	metrics *metrics.BakestoreMetrics
}

// Open opens or creates the catalog database at path and migrates the
// schema. Metrics may be nil.
func Open(path string, m *metrics.BakestoreMetrics) (*Store, error) {
	logger := logging.ForService("bakestore")
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component(ComponentBakestore).
				Category(errors.CategoryFileIO).
				Context("path", privacy.SanitizePath(path)).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentBakestore).
			Category(errors.CategoryDatabase).
			Context("path", privacy.SanitizePath(path)).
			Build()
	}

	if err := db.AutoMigrate(&BakeJob{}, &BakeArtifact{}); err != nil {
		return nil, errors.New(err).
			Component(ComponentBakestore).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}

	s := &Store{db: db, path: path, logger: logger, metrics: m}
	s.refreshStats()
	logger.Info("bake catalog opened", "path", privacy.SanitizePath(path))
	return s, nil
}

// CreateJob inserts a new job row. A zero StartedAt is set to now and an
// empty State defaults to running.
func (s *Store) CreateJob(job *BakeJob) error {
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	if job.State == "" {
		job.State = JobRunning
	}

	start := time.Now()
	err := s.db.Create(job).Error
	s.record(metrics.OpDbInsert, tableJobs, start, err)
	if err != nil {
		return s.dbError(err, "create_job", job.ID)
	}
	return nil
}

// CompleteJob marks a job done and stamps its completion time.
func (s *Store) CompleteJob(id string) error {
	now := time.Now()
	start := time.Now()
	res := s.db.Model(&BakeJob{}).Where("id = ?", id).Updates(map[string]any{
		"state":        JobDone,
		"completed_at": &now,
	})
	s.record(metrics.OpDbUpdate, tableJobs, start, res.Error)
	if res.Error != nil {
		return s.dbError(res.Error, "complete_job", id)
	}
	if res.RowsAffected == 0 {
		return s.notFound(id)
	}
	s.refreshStats()
	return nil
}

// FailJob marks a job failed, or canceled when the given cause is context
// cancellation, and records the cause.
func (s *Store) FailJob(id string, cause error) error {
	state := JobFailed
	msg := ""
	if cause != nil {
		msg = privacy.ScrubMessage(cause.Error())
		if errors.Is(cause, context.Canceled) {
			state = JobCanceled
		}
	}

	now := time.Now()
	start := time.Now()
	res := s.db.Model(&BakeJob{}).Where("id = ?", id).Updates(map[string]any{
		"state":        state,
		"error":        msg,
		"completed_at": &now,
	})
	s.record(metrics.OpDbUpdate, tableJobs, start, res.Error)
	if res.Error != nil {
		return s.dbError(res.Error, "fail_job", id)
	}
	if res.RowsAffected == 0 {
		return s.notFound(id)
	}
	s.refreshStats()
	return nil
}

// AddArtifact inserts one artifact row for a job.
func (s *Store) AddArtifact(artifact *BakeArtifact) error {
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now()
	}

	start := time.Now()
	err := s.db.Create(artifact).Error
	s.record(metrics.OpDbInsert, tableArtifacts, start, err)
	if err != nil {
		return s.dbError(err, "add_artifact", artifact.JobID)
	}
	return nil
}

// GetJob returns one job by identifier.
func (s *Store) GetJob(id string) (*BakeJob, error) {
	var job BakeJob
	start := time.Now()
	err := s.db.First(&job, "id = ?", id).Error
	s.record(metrics.OpDbQuery, tableJobs, start, err)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.notFound(id)
	}
	if err != nil {
		return nil, s.dbError(err, "get_job", id)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, newest first. A non-positive limit
// applies the default.
func (s *Store) ListJobs(limit int) ([]BakeJob, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var jobs []BakeJob
	start := time.Now()
	err := s.db.Order("started_at DESC").Limit(limit).Find(&jobs).Error
	s.record(metrics.OpDbQuery, tableJobs, start, err)
	if err != nil {
		return nil, s.dbError(err, "list_jobs", "")
	}
	return jobs, nil
}

// ArtifactsForJob returns every artifact recorded for a job.
func (s *Store) ArtifactsForJob(jobID string) ([]BakeArtifact, error) {
	var artifacts []BakeArtifact
	start := time.Now()
	err := s.db.Where("job_id = ?", jobID).Order("id ASC").Find(&artifacts).Error
	s.record(metrics.OpDbQuery, tableArtifacts, start, err)
	if err != nil {
		return nil, s.dbError(err, "artifacts_for_job", jobID)
	}
	return artifacts, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return s.dbError(err, "close", "")
	}
	s.logger.Info("bake catalog closed", "path", privacy.SanitizePath(s.path))
	return nil
}

func (s *Store) record(op, table string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := metrics.LabelSuccess
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = metrics.LabelError
		s.metrics.RecordOperationError(op, table, "database")
	}
	s.metrics.RecordOperation(op, table, status)
	s.metrics.RecordOperationDuration(op, table, time.Since(start).Seconds())
}

// refreshStats updates the size and row-count gauges. Failures are ignored:
// the gauges are best effort and the caller's operation already succeeded.
func (s *Store) refreshStats() {
	if s.metrics == nil {
		return
	}
	if info, err := os.Stat(s.path); err == nil {
		s.metrics.UpdateDbSize(info.Size())
	}
	var jobs, artifacts int64
	if err := s.db.Model(&BakeJob{}).Count(&jobs).Error; err == nil {
		s.metrics.UpdateTableRowCount(tableJobs, jobs)
	}
	if err := s.db.Model(&BakeArtifact{}).Count(&artifacts).Error; err == nil {
		s.metrics.UpdateTableRowCount(tableArtifacts, artifacts)
	}
}

func (s *Store) dbError(err error, operation, jobID string) error {
	builder := errors.New(err).
		Component(ComponentBakestore).
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	if jobID != "" {
		builder = builder.Context("job_id", jobID)
	}
	return builder.Build()
}

func (s *Store) notFound(id string) error {
	return errors.Newf("bake job %s not found", id).
		Component(ComponentBakestore).
		Category(errors.CategoryNotFound).
		Context("job_id", id).
		Build()
}
