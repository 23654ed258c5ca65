package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzarra/Vertigini-VR/internal/api"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/observability"
	"github.com/izzarra/Vertigini-VR/internal/playback"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSettings(t *testing.T) *conf.Settings {
	t.Helper()

	settings := &conf.Settings{}
	settings.Version = "test"
	settings.Main.Name = "studio-rig"
	settings.Realtime.FrameRate = 250
	settings.Realtime.Audio = conf.AudioSettings{
		SampleRate: 48000,
		Channels:   2,
		BlockSize:  128,
		Source:     "tone",
		ToneHz:     440,
		Gain:       0.8,
	}
	settings.Spatial = conf.SpatialSettings{
		DryMix:     1.0,
		Reverb:     conf.ReverbSettings{Enabled: true, Mix: 1.5},
		Simulation: "realtime",
		ReverbType: "parametric",
	}
	settings.Bake = conf.BakeSettings{
		Output:    filepath.Join(t.TempDir(), "bakes"),
		Database:  filepath.Join(t.TempDir(), "bakes.db"),
		IRSeconds: 0.05,
	}
	return settings
}

func newTestEngine(t *testing.T, settings *conf.Settings) *engine {
	t.Helper()

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	eng, err := buildEngine(settings, metrics, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { eng.teardown(newTestLogger()) })
	return eng
}

func TestBuildEngine(t *testing.T) {
	t.Run("defaults to the demo room", func(t *testing.T) {
		settings := newTestSettings(t)
		eng := newTestEngine(t, settings)

		assert.Equal(t, "default-room", eng.scene.Name)
		assert.Equal(t, "studio-rig", eng.listener.Name())
		assert.NotNil(t, eng.baker)
		assert.NotNil(t, eng.catalog, "a configured database must open a catalog")
	})

	t.Run("missing scene file falls back to the demo room", func(t *testing.T) {
		settings := newTestSettings(t)
		settings.Spatial.Scene = filepath.Join(t.TempDir(), "nope.yaml")

		eng := newTestEngine(t, settings)
		assert.Equal(t, "default-room", eng.scene.Name)
	})

	t.Run("loads a scene descriptor", func(t *testing.T) {
		scenePath := filepath.Join(t.TempDir(), "booth.yaml")
		doc := `name: tracking-booth
room:
  width: 4
  height: 3
  depth: 5
absorption: 0.4
probes:
  - name: booth-center
    center: [0, 1.5, 0]
    radius: 1.5
`
		require.NoError(t, os.WriteFile(scenePath, []byte(doc), 0o644))

		settings := newTestSettings(t)
		settings.Spatial.Scene = scenePath

		eng := newTestEngine(t, settings)
		assert.Equal(t, "tracking-booth", eng.scene.Name)
		require.Len(t, eng.scene.Probes, 1)
		assert.Equal(t, "booth-center", eng.scene.Probes[0].Name)
	})

	t.Run("malformed scene file is an error", func(t *testing.T) {
		scenePath := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(scenePath, []byte(":::\tnot yaml"), 0o644))

		settings := newTestSettings(t)
		settings.Spatial.Scene = scenePath

		metrics, err := observability.NewMetrics()
		require.NoError(t, err)
		_, err = buildEngine(settings, metrics, newTestLogger())
		require.Error(t, err)
	})

	t.Run("unreadable impulse response is an error", func(t *testing.T) {
		irPath := filepath.Join(t.TempDir(), "bad.wav")
		require.NoError(t, os.WriteFile(irPath, []byte("not a wav"), 0o644))

		settings := newTestSettings(t)
		settings.Spatial.IRPath = irPath

		metrics, err := observability.NewMetrics()
		require.NoError(t, err)
		_, err = buildEngine(settings, metrics, newTestLogger())
		require.Error(t, err)
	})

	t.Run("empty database path skips the catalog", func(t *testing.T) {
		settings := newTestSettings(t)
		settings.Bake.Database = ""

		eng := newTestEngine(t, settings)
		assert.Nil(t, eng.catalog)
	})
}

func TestBuildSource(t *testing.T) {
	t.Run("tone oscillator", func(t *testing.T) {
		for _, name := range []string{"", "tone", "TONE"} {
			source, err := buildSource(conf.AudioSettings{Source: name, ToneHz: 440, SampleRate: 44100, Channels: 2})
			require.NoError(t, err, "source %q", name)
			assert.Equal(t, 44100, source.SampleRate())
			assert.Equal(t, 2, source.Channels())
			require.NoError(t, source.Close())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := buildSource(conf.AudioSettings{Source: filepath.Join(t.TempDir(), "ghost.wav")})
		require.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := buildSource(conf.AudioSettings{Source: "music.mp3"})
		require.Error(t, err)
	})
}

func TestListenerConfig(t *testing.T) {
	settings := newTestSettings(t)
	settings.Spatial.DryMix = 0.25
	settings.Spatial.Accelerated = true
	settings.Spatial.Binaural = true

	cfg := listenerConfig(settings)

	assert.Equal(t, "studio-rig", cfg.Name)
	assert.Equal(t, 48000, cfg.Format.SampleRate)
	assert.Equal(t, 2, cfg.Format.Channels)
	assert.Equal(t, 128, cfg.Format.BlockSize)
	assert.True(t, cfg.ReverbEnabled)
	assert.True(t, cfg.AcceleratedEnabled)
	assert.True(t, cfg.BinauralEnabled)
	assert.Equal(t, "realtime", cfg.Simulation)
	assert.Equal(t, "parametric", cfg.ReverbType)
	assert.InDelta(t, 0.25, cfg.DryMixFraction, 1e-6)
	assert.InDelta(t, 1.5, cfg.ReverbMixFraction, 1e-6)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "tone", sourceLabel(""))
	assert.Equal(t, "tone", sourceLabel("tone"))
	assert.Equal(t, "tone", sourceLabel("TONE"))
	assert.Equal(t, "ambience.wav", sourceLabel("/media/loops/ambience.wav"))
}

func TestStartFrameTicker(t *testing.T) {
	settings := newTestSettings(t)
	settings.Bake.Database = ""
	eng := newTestEngine(t, settings)

	quitChan := make(chan struct{})
	var wg sync.WaitGroup
	startFrameTicker(&wg, eng.listener, 250, quitChan)

	require.Eventually(t, func() bool {
		return eng.listener.Status().FramesAdvanced >= 3
	}, 2*time.Second, 5*time.Millisecond, "ticker must advance the listener")

	close(quitChan)
	wg.Wait()

	frames := eng.listener.Status().FramesAdvanced
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frames, eng.listener.Status().FramesAdvanced, "ticker must stop advancing after quit")
}

func shutdownController(t *testing.T, controller *api.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	controller.Shutdown(ctx)
}

func TestStartAPIServer(t *testing.T) {
	newIdleDevice := func(t *testing.T) *playback.Device {
		t.Helper()
		device, err := playback.NewDevice(playback.DeviceParams{
			Source: playback.NewToneSource(440, 48000, 2),
			Logger: newTestLogger(),
		})
		require.NoError(t, err)
		return device
	}

	t.Run("disabled", func(t *testing.T) {
		settings := newTestSettings(t)
		eng := newTestEngine(t, settings)

		controller, err := startAPIServer(settings, eng, newIdleDevice(t), newTestLogger())
		require.NoError(t, err)
		assert.Nil(t, controller)
	})

	t.Run("serves status and health", func(t *testing.T) {
		settings := newTestSettings(t)
		settings.Realtime.API = conf.APISettings{Enabled: true, Listen: "127.0.0.1:0"}
		eng := newTestEngine(t, settings)

		controller, err := startAPIServer(settings, eng, newIdleDevice(t), newTestLogger())
		require.NoError(t, err)
		require.NotNil(t, controller)
		t.Cleanup(func() { shutdownController(t, controller) })

		base := "http://" + controller.Echo.Listener.Addr().String()

		resp, err := http.Get(base + "/healthz")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())

		resp, err = http.Get(base + "/api/v1/status")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	})

	t.Run("missing catalog yields service unavailable", func(t *testing.T) {
		settings := newTestSettings(t)
		settings.Realtime.API = conf.APISettings{Enabled: true, Listen: "127.0.0.1:0"}
		settings.Bake.Database = ""
		eng := newTestEngine(t, settings)
		require.Nil(t, eng.catalog)

		controller, err := startAPIServer(settings, eng, newIdleDevice(t), newTestLogger())
		require.NoError(t, err)
		require.NotNil(t, controller)
		t.Cleanup(func() { shutdownController(t, controller) })

		resp, err := http.Get("http://" + controller.Echo.Listener.Addr().String() + "/api/v1/bakes")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	})
}

func TestRunFailsBeforeAudioStarts(t *testing.T) {
	t.Run("malformed scene", func(t *testing.T) {
		scenePath := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(scenePath, []byte(":::\tnot yaml"), 0o644))

		settings := newTestSettings(t)
		settings.Spatial.Scene = scenePath

		require.Error(t, Run(settings))
	})

	t.Run("missing source file", func(t *testing.T) {
		settings := newTestSettings(t)
		settings.Realtime.Audio.Source = filepath.Join(t.TempDir(), "ghost.flac")

		require.Error(t, Run(settings))
	})
}

func TestMonitorShutdownSignals(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			quitChan := make(chan struct{})
			monitorShutdownSignals(quitChan, newTestLogger())

			// Give the monitor time to register before signaling ourselves,
			// otherwise the default handler would kill the test binary.
			time.Sleep(50 * time.Millisecond)

			proc, err := os.FindProcess(os.Getpid())
			require.NoError(t, err)
			require.NoError(t, proc.Signal(sig))

			select {
			case <-quitChan:
			case <-time.After(2 * time.Second):
				t.Fatal("quit channel did not close after signal")
			}
		})
	}
}
