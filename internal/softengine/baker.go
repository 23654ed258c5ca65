package softengine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/cpuspec"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

const (
	defaultIRSeconds   = 0.5
	defaultParallelism = 4
	// directLevel is the direct-path spike at the head of every synthesized
	// impulse response.
	directLevel = 0.9
)

// BakerParams configures a SoftBaker.
type BakerParams struct {
	Scene     *SceneDescriptor
	Store     *bakestore.Store
	OutputDir string
	// SampleRate of synthesized impulse responses. Zero defaults to 48000.
	SampleRate int
	// IRSeconds is the synthesized tail length. Zero applies the default.
	IRSeconds float64
	// Parallelism bounds concurrent probe synthesis. Zero sizes the pool
	// from the CPU's performance cores.
	Parallelism int
	Metrics     *metrics.BakeMetrics
}

// SoftBaker synthesizes per-probe impulse responses and records them in the
// bake catalog. One job runs at a time; BeginBake returns as soon as the job
// goroutine is spawned and EndBake cancels whatever is in flight.
type SoftBaker struct {
	desc        *SceneDescriptor
	store       *bakestore.Store
	outDir      string
	sampleRate  int
	irSeconds   float64
	parallelism int
	metrics     *metrics.BakeMetrics
	logger      *slog.Logger

	// probeDelay paces each probe's synthesis; tests use it to exercise
	// cancellation deterministically.
	probeDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewSoftBaker builds a baker. Store and Metrics may be nil; a nil scene
// gets the default demo room.
func NewSoftBaker(p BakerParams) *SoftBaker {
	desc := p.Scene
	if desc == nil {
		desc = DefaultScene()
	}
	sampleRate := p.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	irSeconds := p.IRSeconds
	if irSeconds <= 0 {
		irSeconds = defaultIRSeconds
	}
	parallelism := p.Parallelism
	if parallelism <= 0 {
		parallelism = cpuspec.GetCPUSpec().GetOptimalWorkerCount()
	}
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	outDir := p.OutputDir
	if outDir == "" {
		outDir = "bakes"
	}
	logger := logging.ForService("softengine")
	if logger == nil {
		logger = slog.Default()
	}
	return &SoftBaker{
		desc:        desc,
		store:       p.Store,
		outDir:      outDir,
		sampleRate:  sampleRate,
		irSeconds:   irSeconds,
		parallelism: parallelism,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// BeginBake starts one bake job over the requested regions, or over every
// scene probe when the request carries none, and returns the job identifier
// without waiting for completion. A second job while one is running is
// rejected.
func (b *SoftBaker) BeginBake(ctx context.Context, req spatial.BakeRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return "", errors.Newf("a bake job is already running").
			Component(ComponentSoftengine).
			Category(errors.CategoryConflict).
			Build()
	}

	regions := req.Regions
	if len(regions) == 0 {
		regions = b.desc.ProbeRegions()
	}
	if len(regions) == 0 {
		return "", errors.Newf("scene %s has no probe regions", b.desc.Name).
			Component(ComponentSoftengine).
			Category(errors.CategoryValidation).
			Build()
	}

	jobID := uuid.New().String()
	if b.store != nil {
		err := b.store.CreateJob(&bakestore.BakeJob{
			ID:          jobID,
			StreamID:    req.StreamID,
			Mode:        string(req.Mode),
			State:       bakestore.JobRunning,
			RegionCount: len(regions),
		})
		if err != nil {
			return "", err
		}
	}

	// The job outlives the trigger's request context; only EndBake cancels
	// it.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.running = true
	b.wg.Add(1)
	go b.runJob(jobCtx, cancel, jobID, regions)

	b.logger.Info("bake job started",
		"job_id", jobID,
		"regions", len(regions),
		"stream_id", req.StreamID)
	return jobID, nil
}

// EndBake cancels any in-flight bake job. It returns immediately; the job
// records its canceled state as it unwinds.
func (b *SoftBaker) EndBake() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil && b.running {
		b.cancel()
		b.logger.Info("bake cancellation requested")
	}
}

// Wait blocks until any in-flight job has fully unwound. Shutdown and tests
// use it to join the job goroutine.
func (b *SoftBaker) Wait() {
	b.wg.Wait()
}

func (b *SoftBaker) runJob(ctx context.Context, cancel context.CancelFunc, jobID string, regions []spatial.ProbeRegion) {
	defer b.wg.Done()
	defer cancel()
	start := time.Now()
	if b.metrics != nil {
		b.metrics.JobStarted()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for _, region := range regions {
		g.Go(func() error {
			return b.bakeProbe(gctx, jobID, region)
		})
	}
	err := g.Wait()

	status := bakestore.JobDone
	if err != nil {
		status = bakestore.JobFailed
		if errors.Is(err, context.Canceled) {
			status = bakestore.JobCanceled
		}
	}

	if b.store != nil {
		var storeErr error
		if err != nil {
			storeErr = b.store.FailJob(jobID, err)
		} else {
			storeErr = b.store.CompleteJob(jobID)
		}
		if storeErr != nil {
			b.logger.Error("failed to record job state",
				"job_id", jobID,
				"error", storeErr)
		}
	}

	if b.metrics != nil {
		b.metrics.JobFinished()
		b.metrics.RecordJob(status)
		b.metrics.RecordJobDuration(status, time.Since(start).Seconds())
	}

	if err != nil {
		b.logger.Error("bake job ended early",
			"job_id", jobID,
			"status", status,
			"error", err)
	} else {
		b.logger.Info("bake job completed",
			"job_id", jobID,
			"probes", len(regions),
			"duration_ms", time.Since(start).Milliseconds())
	}

	b.mu.Lock()
	b.running = false
	b.cancel = nil
	b.mu.Unlock()
}

func (b *SoftBaker) bakeProbe(ctx context.Context, jobID string, region spatial.ProbeRegion) error {
	if b.probeDelay > 0 {
		timer := time.NewTimer(b.probeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	ir, peak := b.synthesizeIR(region)

	path := filepath.Join(b.outDir, fmt.Sprintf("%s-%s.wav", jobID[:8], fileNameFragment(region.Name)))
	size, err := writeIRWav(path, ir, b.sampleRate)
	if err != nil {
		if b.metrics != nil {
			b.metrics.RecordProbe("error")
		}
		return err
	}

	if b.store != nil {
		err := b.store.AddArtifact(&bakestore.BakeArtifact{
			JobID:      jobID,
			ProbeName:  region.Name,
			Path:       path,
			SampleRate: b.sampleRate,
			IRLength:   len(ir),
			PeakLevel:  float64(peak),
			SizeBytes:  size,
		})
		if err != nil {
			return err
		}
	}

	if b.metrics != nil {
		b.metrics.RecordProbe("done")
		b.metrics.RecordProbeDuration("done", time.Since(start).Seconds())
		b.metrics.RecordArtifact("wav", size)
	}
	b.logger.Debug("probe baked",
		"job_id", jobID,
		"probe", region.Name,
		"taps", len(ir),
		"peak", peak)
	return nil
}

// synthesizeIR renders an exponentially decaying noise tail shaped by the
// room's reverb time, with a direct-path spike at the head. Seeding from the
// probe name keeps bakes reproducible.
func (b *SoftBaker) synthesizeIR(region spatial.ProbeRegion) (samples []float32, peak float32) {
	n := int(b.irSeconds * float64(b.sampleRate))
	if n < 1 {
		n = 1
	}

	// Larger probe volumes get slightly longer tails.
	rt60 := b.desc.ReverbTime() * (1 + float64(region.Radius)/b.desc.MaxDimension())
	decay := 6.9078 / (rt60 * float64(b.sampleRate))

	h := fnv.New64a()
	h.Write([]byte(region.Name))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	samples = make([]float32, n)
	samples[0] = directLevel
	peak = directLevel
	for i := 1; i < n; i++ {
		env := math.Exp(-decay * float64(i))
		s := float32((rng.Float64()*2 - 1) * env * 0.5)
		samples[i] = s
		if a := abs32(s); a > peak {
			peak = a
		}
	}
	return samples, peak
}

func writeIRWav(path string, samples []float32, sampleRate int) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileIO).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileIO).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}
	defer f.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		ints[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	})
	if err != nil {
		return 0, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryAudio).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}
	if err := enc.Close(); err != nil {
		return 0, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryAudio).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileIO).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}
	return info.Size(), nil
}

// fileNameFragment reduces a probe name to a filesystem-safe token.
func fileNameFragment(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		return "probe"
	}
	return mapped
}
