package softengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

func openBakeStore(t *testing.T) *bakestore.Store {
	t.Helper()
	store, err := bakestore.Open(filepath.Join(t.TempDir(), "bakes.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func newTestBaker(t *testing.T, desc *SceneDescriptor, store *bakestore.Store) *SoftBaker {
	t.Helper()
	b := NewSoftBaker(BakerParams{
		Scene:      desc,
		Store:      store,
		OutputDir:  t.TempDir(),
		SampleRate: 8000,
		IRSeconds:  0.05,
	})
	t.Cleanup(b.Wait)
	return b
}

func twoProbeScene() *SceneDescriptor {
	desc := DefaultScene()
	desc.Probes = []SceneProbe{
		{Name: "atrium", Center: [3]float32{0, 2, 0}, Radius: 6},
		{Name: "corridor", Center: [3]float32{8, 2, 0}, Radius: 3},
	}
	return desc
}

func TestBakerBakesAllProbes(t *testing.T) {
	store := openBakeStore(t)
	b := newTestBaker(t, twoProbeScene(), store)

	jobID, err := b.BeginBake(context.Background(), spatial.BakeRequest{
		Mode:     spatial.BakeModeReverb,
		StreamID: spatial.ReverbStreamID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
	b.Wait()

	job, err := store.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, bakestore.JobDone, job.State)
	assert.Equal(t, 2, job.RegionCount)
	assert.Equal(t, spatial.ReverbStreamID, job.StreamID)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.CompletedAt)

	artifacts, err := store.ArtifactsForJob(jobID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	names := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		names[a.ProbeName] = true
		assert.Equal(t, 8000, a.SampleRate)
		assert.Equal(t, 400, a.IRLength, "0.05s at 8kHz")
		assert.InDelta(t, 0.9, a.PeakLevel, 0.1, "the direct-path spike dominates the tail")

		info, err := os.Stat(a.Path)
		require.NoError(t, err, "artifact %s must exist on disk", a.ProbeName)
		assert.Equal(t, info.Size(), a.SizeBytes)
	}
	assert.True(t, names["atrium"])
	assert.True(t, names["corridor"])
}

func TestBakerExplicitRegions(t *testing.T) {
	store := openBakeStore(t)
	b := newTestBaker(t, twoProbeScene(), store)

	jobID, err := b.BeginBake(context.Background(), spatial.BakeRequest{
		Regions:  []spatial.ProbeRegion{{Name: "corridor", Radius: 3}},
		Mode:     spatial.BakeModeReverb,
		StreamID: spatial.ReverbStreamID,
	})
	require.NoError(t, err)
	b.Wait()

	artifacts, err := store.ArtifactsForJob(jobID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "corridor", artifacts[0].ProbeName)
}

func TestBakerRepeatableOutput(t *testing.T) {
	store := openBakeStore(t)
	b := newTestBaker(t, DefaultScene(), store)

	bake := func() []byte {
		jobID, err := b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
		require.NoError(t, err)
		b.Wait()

		artifacts, err := store.ArtifactsForJob(jobID)
		require.NoError(t, err)
		require.Len(t, artifacts, 1)
		data, err := os.ReadFile(artifacts[0].Path)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, bake(), bake(), "the same probe must bake to identical bytes")
}

func TestBakerRejectsConcurrentJobs(t *testing.T) {
	b := newTestBaker(t, DefaultScene(), openBakeStore(t))
	b.probeDelay = 250 * time.Millisecond

	_, err := b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.NoError(t, err)

	_, err = b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.Error(t, err, "a second job must be rejected while one is running")

	b.EndBake()
	b.Wait()
}

func TestBakerCancellation(t *testing.T) {
	store := openBakeStore(t)
	b := newTestBaker(t, twoProbeScene(), store)
	b.probeDelay = 250 * time.Millisecond

	jobID, err := b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.NoError(t, err)

	b.EndBake()
	b.Wait()

	job, err := store.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, bakestore.JobCanceled, job.State)
	require.NotNil(t, job.CompletedAt)
}

func TestBakerSurvivesTriggerContext(t *testing.T) {
	store := openBakeStore(t)
	b := newTestBaker(t, DefaultScene(), store)

	// The request context is canceled the moment BeginBake returns, the way
	// an HTTP trigger's context dies with the response.
	ctx, cancel := context.WithCancel(context.Background())
	jobID, err := b.BeginBake(ctx, spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.NoError(t, err)
	cancel()
	b.Wait()

	job, err := store.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, bakestore.JobDone, job.State)
}

func TestBakerNoRegions(t *testing.T) {
	desc := &SceneDescriptor{Name: "empty", Room: RoomDimensions{Width: 10, Height: 3, Depth: 10}, Absorption: 0.3}
	b := newTestBaker(t, desc, nil)

	_, err := b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.Error(t, err)
}

func TestBakerWithoutStore(t *testing.T) {
	outDir := t.TempDir()
	b := NewSoftBaker(BakerParams{
		Scene:      twoProbeScene(),
		OutputDir:  outDir,
		SampleRate: 8000,
		IRSeconds:  0.05,
	})

	_, err := b.BeginBake(context.Background(), spatial.BakeRequest{Mode: spatial.BakeModeReverb})
	require.NoError(t, err)
	b.Wait()

	files, err := filepath.Glob(filepath.Join(outDir, "*.wav"))
	require.NoError(t, err)
	assert.Len(t, files, 2, "artifacts are still written without a catalog")
}

func TestFileNameFragment(t *testing.T) {
	cases := map[string]string{
		"atrium":        "atrium",
		"Loading Dock":  "loading-dock",
		"probe_7":       "probe_7",
		"..//..":        "probe",
		"":              "probe",
		"Grand Atrium!": "grand-atrium",
	}
	for in, want := range cases {
		assert.Equal(t, want, fileNameFragment(in), "fileNameFragment(%q)", in)
	}
}
