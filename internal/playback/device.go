package playback

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
)

const (
	// ringBlocks is how many render blocks the feeder keeps buffered ahead
	// of the device callback.
	ringBlocks = 8
	// feederRetryDelay paces the feeder while the ring buffer is full.
	feederRetryDelay = 2 * time.Millisecond
	// deviceRestartDelay spaces restart attempts after an unexpected device
	// stop.
	deviceRestartDelay = 100 * time.Millisecond
)

// RenderFunc processes one interleaved block in place before it reaches the
// device. The listener's render entry point satisfies this.
type RenderFunc func(buffer []float32, channels int)

// DeviceParams configures a playback device.
type DeviceParams struct {
	// DeviceName selects an output device by case-insensitive substring
	// match. Empty uses the system default.
	DeviceName string
	// SourceName labels metrics and logs. Empty defaults to "source".
	SourceName string
	SampleRate int
	Channels   int
	// BlockSize is the render block length in frames. Zero applies the
	// default.
	BlockSize int
	// Gain is applied to source samples before rendering. Zero means unity.
	Gain    float64
	Source  Source
	Render  RenderFunc
	Metrics *metrics.PlaybackMetrics
	Logger  *slog.Logger
}

// Device drives a malgo playback device. A feeder goroutine pumps the
// source into a ring buffer; the device's data callback drains the ring,
// renders the block through the listener and hands it to the hardware.
type Device struct {
	sourceName  string
	deviceName  string
	sampleRate  int
	channels    int
	blockSize   int
	gain        float32
	source      Source
	render      RenderFunc
	metrics     *metrics.PlaybackMetrics
	logger      *slog.Logger
	backendName string

	ring *ringbuffer.RingBuffer
	pool *Float32Pool

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	feedCancel context.CancelFunc
	wg         sync.WaitGroup

	started  atomic.Bool
	stopping atomic.Bool
	drained  atomic.Bool

	blocks    atomic.Uint64
	underruns atomic.Uint64
	level     atomic.Int64

	// rawBuf is reused across data callbacks; malgo serializes them per
	// device.
	rawBuf []byte
}

// DeviceStats is a point-in-time playback snapshot for the API.
type DeviceStats struct {
	Blocks        uint64 `json:"blocks"`
	Underruns     uint64 `json:"underruns"`
	SourceDrained bool   `json:"source_drained"`
	Level         int    `json:"level"`
}

// NewDevice builds a playback device around a source. The device owns the
// source and closes it on Stop.
func NewDevice(p DeviceParams) (*Device, error) {
	if p.Source == nil {
		return nil, errors.Newf("playback device requires a source").
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}

	sampleRate := p.SampleRate
	if sampleRate <= 0 {
		sampleRate = p.Source.SampleRate()
	}
	channels := p.Channels
	if channels <= 0 {
		channels = p.Source.Channels()
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.Newf("invalid playback format %dHz/%dch", sampleRate, channels).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}
	blockSize := p.BlockSize
	if blockSize <= 0 {
		blockSize = 512
	}
	gain := float32(p.Gain)
	if gain <= 0 {
		gain = 1
	}
	sourceName := p.SourceName
	if sourceName == "" {
		sourceName = "source"
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.ForService("playback")
	}
	if logger == nil {
		logger = slog.Default()
	}

	blockSamples := blockSize * channels
	pool, err := NewFloat32Pool(blockSamples)
	if err != nil {
		return nil, err
	}

	return &Device{
		sourceName: sourceName,
		deviceName: p.DeviceName,
		sampleRate: sampleRate,
		channels:   channels,
		blockSize:  blockSize,
		gain:       gain,
		source:     p.Source,
		render:     p.Render,
		metrics:    p.Metrics,
		logger:     logger,
		ring:       ringbuffer.New(blockSamples * bytesPerSample * ringBlocks),
		pool:       pool,
	}, nil
}

// platformBackends picks the malgo backend per OS; unknown platforms let
// malgo auto-select.
func platformBackends() ([]malgo.Backend, string) {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}, "alsa"
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}, "wasapi"
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}, "coreaudio"
	default:
		return nil, "auto"
	}
}

// Start opens the audio device and begins playback. The context bounds the
// feeder goroutine; the device itself runs until Stop.
func (d *Device) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.Newf("playback device already started").
			Component(ComponentPlayback).
			Category(errors.CategoryState).
			Build()
	}

	backends, backendName := platformBackends()
	d.backendName = backendName

	malgoCtx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		d.logger.Debug("malgo", "message", strings.TrimSpace(message))
	})
	if err != nil {
		d.started.Store(false)
		d.recordStart("error")
		return errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Context("backend", backendName).
			Build()
	}
	d.malgoCtx = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(d.channels)
	deviceConfig.SampleRate = uint32(d.sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(d.blockSize)
	deviceConfig.Alsa.NoMMap = 1

	if d.deviceName != "" {
		id, err := d.findOutputDevice(d.deviceName)
		if err != nil {
			d.teardownContext()
			d.started.Store(false)
			d.recordStart("error")
			return err
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onSamples,
		Stop: d.onDeviceStop,
	})
	if err != nil {
		d.teardownContext()
		d.started.Store(false)
		d.recordStart("error")
		return errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Context("backend", backendName).
			Build()
	}
	d.device = device

	// Fill the ring before the hardware starts pulling so the first blocks
	// do not underrun.
	d.prefill()

	feedCtx, cancel := context.WithCancel(ctx)
	d.feedCancel = cancel
	if !d.drained.Load() {
		d.wg.Add(1)
		go d.feed(feedCtx)
	}

	if err := device.Start(); err != nil {
		cancel()
		d.wg.Wait()
		device.Uninit()
		d.teardownContext()
		d.started.Store(false)
		d.recordStart("error")
		return errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Context("backend", backendName).
			Build()
	}

	d.recordStart("ok")
	d.logger.Info("playback device started",
		"backend", backendName,
		"source", d.sourceName,
		"sample_rate", d.sampleRate,
		"channels", d.channels,
		"block_frames", d.blockSize)
	return nil
}

// Stop halts playback, joins the feeder and releases the device, the malgo
// context and the source. Safe to call more than once.
func (d *Device) Stop() {
	if !d.started.CompareAndSwap(true, false) {
		return
	}
	d.stopping.Store(true)

	if d.feedCancel != nil {
		d.feedCancel()
	}
	d.wg.Wait()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	d.teardownContext()

	if err := d.source.Close(); err != nil {
		d.logger.Warn("failed to close audio source", "source", d.sourceName, "error", err)
	}
	if d.metrics != nil {
		d.metrics.RecordDeviceStop(d.backendName)
	}
	d.logger.Info("playback device stopped",
		"blocks", d.blocks.Load(),
		"underruns", d.underruns.Load())
}

// Stats returns a point-in-time playback snapshot.
func (d *Device) Stats() DeviceStats {
	return DeviceStats{
		Blocks:        d.blocks.Load(),
		Underruns:     d.underruns.Load(),
		SourceDrained: d.drained.Load(),
		Level:         int(d.level.Load()),
	}
}

func (d *Device) recordStart(status string) {
	if d.metrics != nil {
		d.metrics.RecordDeviceStart(d.backendName, status)
	}
}

func (d *Device) teardownContext() {
	if d.malgoCtx == nil {
		return
	}
	if err := d.malgoCtx.Uninit(); err != nil {
		d.logger.Warn("malgo context uninit failed", "error", err)
	}
	d.malgoCtx.Free()
	d.malgoCtx = nil
}

func (d *Device) findOutputDevice(name string) (malgo.DeviceID, error) {
	infos, err := d.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryAudio).
			Build()
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return infos[i].ID, nil
		}
	}
	return malgo.DeviceID{}, errors.Newf("no output device matches %q", name).
		Component(ComponentPlayback).
		Category(errors.CategoryNotFound).
		Context("devices", len(infos)).
		Build()
}

func (d *Device) blockSamples() int {
	return d.blockSize * d.channels
}

// onSamples is the malgo data callback. It runs on the audio thread;
// everything it touches is either atomic or only written here.
func (d *Device) onSamples(pOutput, _ []byte, framecount uint32) {
	sampleCount := int(framecount) * d.channels
	want := sampleCount * bytesPerSample
	if cap(d.rawBuf) < want {
		d.rawBuf = make([]byte, want)
	}
	raw := d.rawBuf[:want]

	got := 0
	if d.ring.Length() > 0 {
		n, err := d.ring.Read(raw)
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			d.logger.Error("ring buffer read failed", "error", err)
		}
		got = n
	}

	var block []float32
	if sampleCount == d.pool.Size() {
		block = d.pool.Get()
	} else {
		block = make([]float32, sampleCount)
	}

	n := decodeSamples(raw[:got], block)
	for i := n; i < sampleCount; i++ {
		block[i] = 0
	}
	if got < want && !d.drained.Load() {
		d.underruns.Add(1)
		if d.metrics != nil {
			d.metrics.RecordUnderrun(d.sourceName)
		}
	}

	if d.gain != 1 {
		for i := range n {
			block[i] *= d.gain
		}
	}

	if d.render != nil {
		d.render(block, d.channels)
	}

	levelData := CalculateAudioLevel(block, d.sourceName)
	d.level.Store(int64(levelData.Level))

	encodeSamples(block, pOutput)
	d.blocks.Add(1)

	if d.metrics != nil {
		d.metrics.RecordCallbackBlock(d.sourceName)
		d.metrics.RecordFramesRendered(d.sourceName, int(framecount))
		d.metrics.UpdateOutputLevel("mix", float64(levelData.Level))
		if capacity := d.ring.Capacity(); capacity > 0 {
			d.metrics.UpdateRingUtilization(d.sourceName, float64(d.ring.Length())/float64(capacity))
		}
	}

	d.pool.Put(block)
}

// onDeviceStop fires when the device stops, normally or not. Unexpected
// stops get one restart attempt before giving up.
func (d *Device) onDeviceStop() {
	if d.stopping.Load() {
		return
	}
	d.logger.Warn("playback device stopped unexpectedly, attempting restart")
	go func() {
		time.Sleep(deviceRestartDelay)
		if d.stopping.Load() || d.device == nil {
			return
		}
		if err := d.device.Start(); err != nil {
			d.logger.Error("playback device restart failed", "error", err)
			if d.metrics != nil {
				d.metrics.RecordDeviceStart(d.backendName, "restart_failed")
			}
		}
	}()
}

// prefill pumps the source into the ring buffer before the device starts.
func (d *Device) prefill() {
	chunk := make([]float32, d.blockSamples())
	raw := make([]byte, len(chunk)*bytesPerSample)
	for d.ring.Free() >= len(raw) {
		n, err := d.source.ReadSamples(chunk)
		if n > 0 {
			m := encodeSamples(chunk[:n], raw)
			if _, werr := d.ring.Write(raw[:m]); werr != nil {
				return
			}
		}
		if err != nil {
			d.handleSourceEnd(err)
			return
		}
	}
}

// feed keeps the ring buffer topped up from the source until the context is
// canceled or the source ends.
func (d *Device) feed(ctx context.Context) {
	defer d.wg.Done()
	chunk := make([]float32, d.blockSamples())
	raw := make([]byte, len(chunk)*bytesPerSample)

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := d.source.ReadSamples(chunk)
		if n > 0 {
			if !d.writeAll(ctx, raw[:encodeSamples(chunk[:n], raw)]) {
				return
			}
		}
		if err != nil {
			d.handleSourceEnd(err)
			return
		}
	}
}

func (d *Device) handleSourceEnd(err error) {
	d.drained.Store(true)
	if errors.Is(err, io.EOF) {
		if d.metrics != nil {
			d.metrics.RecordSourceEOF(d.sourceName)
		}
		d.logger.Info("audio source drained", "source", d.sourceName)
		return
	}
	if d.metrics != nil {
		d.metrics.RecordSourceError(d.sourceName, "read")
	}
	d.logger.Error("audio source read failed", "source", d.sourceName, "error", err)
}

func (d *Device) writeAll(ctx context.Context, data []byte) bool {
	for len(data) > 0 {
		if d.ring.Free() < len(data) {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(feederRetryDelay):
			}
			continue
		}
		n, err := d.ring.Write(data)
		data = data[n:]
		if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
			d.logger.Error("ring buffer write failed", "error", err)
			return false
		}
	}
	return true
}
