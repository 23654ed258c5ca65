// Package realtime wires the soft acoustics engine, the spatial listener
// and the playback device into the long-running rendering service behind
// the realtime subcommand.
package realtime

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/izzarra/Vertigini-VR/internal/api"
	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/observability"
	"github.com/izzarra/Vertigini-VR/internal/playback"
	"github.com/izzarra/Vertigini-VR/internal/softengine"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// ComponentRealtime identifies this package in enhanced errors.
const ComponentRealtime = "realtime"

const (
	defaultFrameRate = 60

	// shutdownTimeout bounds the control API drain during teardown.
	shutdownTimeout = 5 * time.Second

	// The demo pose orbits the room at ear height.
	listenerHeight = 1.6
	orbitPeriod    = 30 * time.Second
)

// engine bundles the acoustics stack assembled around the listener so the
// orchestrator and its error paths can tear it down as one unit.
type engine struct {
	scene    *softengine.SceneDescriptor
	listener *spatial.Listener
	baker    *softengine.SoftBaker
	catalog  *bakestore.Store
}

// Run builds the rendering stack from settings, starts the frame ticker,
// the playback device and the configured endpoints, then blocks until
// SIGINT or SIGTERM and tears everything down in order.
func Run(settings *conf.Settings) error {
	logger := logging.ForService("realtime")
	if logger == nil {
		logger = slog.Default()
	}

	logSystemDetails(logger)

	audio := settings.Realtime.Audio
	logger.Info("starting realtime rendering",
		"frame_rate", settings.Realtime.FrameRate,
		"device", audio.Device,
		"source", sourceLabel(audio.Source),
		"sample_rate", audio.SampleRate,
		"channels", audio.Channels,
		"simulation", settings.Spatial.Simulation,
		"accelerated", settings.Spatial.Accelerated,
		"reverb", settings.Spatial.Reverb.Enabled)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component(ComponentRealtime).
			Category(errors.CategoryConfiguration).
			Build()
	}

	eng, err := buildEngine(settings, metrics, logger)
	if err != nil {
		return err
	}

	source, err := buildSource(audio)
	if err != nil {
		eng.teardown(logger)
		return err
	}

	device, err := playback.NewDevice(playback.DeviceParams{
		DeviceName: audio.Device,
		SourceName: sourceLabel(audio.Source),
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
		BlockSize:  audio.BlockSize,
		Gain:       audio.Gain,
		Source:     source,
		Render:     eng.listener.RenderAudio,
		Metrics:    metrics.Playback,
		Logger:     logger,
	})
	if err != nil {
		closeSource(source, logger)
		eng.teardown(logger)
		return err
	}
	if err := device.Start(context.Background()); err != nil {
		closeSource(source, logger)
		eng.teardown(logger)
		return err
	}

	quitChan := make(chan struct{})
	// The frame ticker joins separately from the service goroutines so
	// teardown can stop it before the device.
	var tickerWG, serviceWG sync.WaitGroup

	startFrameTicker(&tickerWG, eng.listener, settings.Realtime.FrameRate, quitChan)
	startTelemetryEndpoint(&serviceWG, settings, metrics, quitChan, logger)

	apiServer, err := startAPIServer(settings, eng, device, logger)
	if err != nil {
		close(quitChan)
		tickerWG.Wait()
		device.Stop()
		eng.teardown(logger)
		serviceWG.Wait()
		return err
	}

	monitorShutdownSignals(quitChan, logger)
	logger.Info("realtime rendering started", "listener", eng.listener.Name())

	<-quitChan

	// Teardown order: frame ticker, device, listener, endpoints, catalog.
	tickerWG.Wait()
	device.Stop()
	eng.listener.Detach()

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		apiServer.Shutdown(shutdownCtx)
		cancel()
	}
	serviceWG.Wait()

	eng.baker.EndBake()
	eng.baker.Wait()
	closeCatalog(eng.catalog, logger)

	logger.Info("realtime rendering stopped")
	return nil
}

// buildEngine assembles the scene, the soft simulator and mixer, the bake
// catalog and baker, and the listener on top of them.
func buildEngine(settings *conf.Settings, metrics *observability.Metrics, logger *slog.Logger) (*engine, error) {
	scene, err := loadScene(settings.Spatial.Scene, logger)
	if err != nil {
		return nil, err
	}

	env := softengine.NewEnvironment(scene)
	simulator := softengine.NewSoftSimulator(softengine.SimulatorParams{Scene: scene})
	mixer := softengine.NewSoftMixer(softengine.MixerParams{Scene: scene})

	if settings.Spatial.IRPath != "" {
		probe := strings.TrimSuffix(filepath.Base(settings.Spatial.IRPath), filepath.Ext(settings.Spatial.IRPath))
		if err := mixer.LoadImpulseResponse(settings.Spatial.IRPath, probe); err != nil {
			return nil, err
		}
	}

	var catalog *bakestore.Store
	if settings.Bake.Database != "" {
		catalog, err = bakestore.Open(settings.Bake.Database, metrics.Bakestore)
		if err != nil {
			return nil, err
		}
	}

	baker := softengine.NewSoftBaker(softengine.BakerParams{
		Scene:       scene,
		Store:       catalog,
		OutputDir:   settings.Bake.Output,
		SampleRate:  settings.Realtime.Audio.SampleRate,
		IRSeconds:   settings.Bake.IRSeconds,
		Parallelism: settings.Bake.Parallelism,
		Metrics:     metrics.Bake,
	})

	listener := spatial.NewListener(listenerConfig(settings), spatial.Dependencies{
		Environment: env,
		Spatializer: softengine.NewSpatializer(),
		Simulator:   simulator,
		Mixer:       mixer,
		Baker:       baker,
		Transform:   softengine.NewOrbitTransform(scene.MaxDimension()/4, listenerHeight, orbitPeriod),
		Logger:      logger,
		Metrics:     metrics.Spatial,
	})

	return &engine{
		scene:    scene,
		listener: listener,
		baker:    baker,
		catalog:  catalog,
	}, nil
}

// loadScene reads the configured scene descriptor. An empty or absent path
// falls back to the built-in demo room so a fresh install still renders; a
// file that exists but fails to parse is a hard error.
func loadScene(path string, logger *slog.Logger) (*softengine.SceneDescriptor, error) {
	if path == "" {
		return softengine.DefaultScene(), nil
	}
	scene, err := softengine.LoadSceneDescriptor(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("scene descriptor not found, using the default room", "scene", path)
			return softengine.DefaultScene(), nil
		}
		return nil, err
	}
	logger.Info("scene descriptor loaded", "scene", path, "name", scene.Name, "probes", len(scene.Probes))
	return scene, nil
}

// buildSource resolves the configured audio source. "tone" or an empty
// source selects the built-in oscillator, anything else is a file path.
func buildSource(audio conf.AudioSettings) (playback.Source, error) {
	switch strings.ToLower(audio.Source) {
	case "", "tone":
		return playback.NewToneSource(audio.ToneHz, audio.SampleRate, audio.Channels), nil
	default:
		return playback.NewFileSource(audio.Source)
	}
}

// listenerConfig maps the flat settings tree onto the listener's config.
func listenerConfig(settings *conf.Settings) spatial.Config {
	audio := settings.Realtime.Audio
	return spatial.Config{
		Name: settings.Main.Name,
		Format: spatial.AudioFormat{
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
			BlockSize:  audio.BlockSize,
		},
		ReverbEnabled:      settings.Spatial.Reverb.Enabled,
		AcceleratedEnabled: settings.Spatial.Accelerated,
		BinauralEnabled:    settings.Spatial.Binaural,
		Simulation:         settings.Spatial.Simulation,
		ReverbType:         settings.Spatial.ReverbType,
		DryMixFraction:     float32(settings.Spatial.DryMix),
		ReverbMixFraction:  float32(settings.Spatial.Reverb.Mix),
	}
}

// startFrameTicker advances the listener once per frame interval until
// quitChan closes.
func startFrameTicker(wg *sync.WaitGroup, listener *spatial.Listener, frameRate int, quitChan <-chan struct{}) {
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}
	interval := time.Second / time.Duration(frameRate)

	wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quitChan:
				return
			case <-ticker.C:
				listener.FrameUpdate()
			}
		}
	})
}

// startTelemetryEndpoint starts the Prometheus endpoint when enabled.
func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, metrics *observability.Metrics, quitChan <-chan struct{}, logger *slog.Logger) {
	if !settings.Realtime.Telemetry.Enabled {
		return
	}
	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		logger.Error("failed to initialize telemetry endpoint", "error", err)
		return
	}
	endpoint.Start(wg, quitChan)
}

// startAPIServer starts the control API when enabled and returns the
// running controller, or nil when the API is off.
func startAPIServer(settings *conf.Settings, eng *engine, device *playback.Device, logger *slog.Logger) (*api.Controller, error) {
	if !settings.Realtime.API.Enabled {
		return nil, nil
	}
	params := api.Params{
		Settings: settings,
		Listener: eng.listener,
		Playback: device,
		Logger:   logger,
	}
	// A nil *Store inside the interface would dodge the handlers' nil
	// checks, so only a live catalog is handed over.
	if eng.catalog != nil {
		params.Catalog = eng.catalog
	}
	controller, err := api.New(params)
	if err != nil {
		return nil, err
	}
	if err := controller.Start(); err != nil {
		return nil, err
	}
	return controller, nil
}

// monitorShutdownSignals closes quitChan on the first SIGINT or SIGTERM.
func monitorShutdownSignals(quitChan chan<- struct{}, logger *slog.Logger) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		close(quitChan)
	}()
}

// teardown unwinds a partially started stack: listener, in-flight bake,
// catalog. The happy path in Run spells the full order out instead because
// the device and the endpoints interleave with these steps.
func (e *engine) teardown(logger *slog.Logger) {
	e.listener.Detach()
	e.baker.EndBake()
	e.baker.Wait()
	closeCatalog(e.catalog, logger)
}

func closeCatalog(catalog *bakestore.Store, logger *slog.Logger) {
	if catalog == nil {
		return
	}
	if err := catalog.Close(); err != nil {
		logger.Error("failed to close bake catalog", "error", err)
		return
	}
	logger.Info("bake catalog closed")
}

func closeSource(source playback.Source, logger *slog.Logger) {
	if err := source.Close(); err != nil {
		logger.Warn("failed to close audio source", "error", err)
	}
}

// sourceLabel names the audio source for logs and metrics.
func sourceLabel(source string) string {
	switch strings.ToLower(source) {
	case "", "tone":
		return "tone"
	default:
		return filepath.Base(source)
	}
}

// logSystemDetails logs the host platform the way the support dump reports
// it, so service logs and diagnostics line up.
func logSystemDetails(logger *slog.Logger) {
	info, err := host.Info()
	if err != nil {
		logger.Warn("could not read host details", "error", err)
		return
	}
	logger.Info("system details",
		"os", info.OS,
		"platform", info.Platform,
		"platform_version", info.PlatformVersion,
		"kernel", info.KernelVersion)
}
