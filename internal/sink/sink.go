package sink

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
)

// PullFunc fills out with the next frameCount*channels interleaved
// Float32 samples to play, returning the number of frames actually
// written (less than frameCount signals underrun; the caller
// zero-fills the remainder). It must not block: it runs on the audio
// hardware's realtime thread.
type PullFunc func(out []float32, frameCount int) int

// Config configures the playback device.
type Config struct {
	DeviceName string
	SampleRate uint32
	Channels   uint32
}

// Sink is the hardware playback device the renderer writes rendered
// PCM to, grounded on the teacher's malgo capture source
// (internal/audiocore/sources/malgo/malgo.go) with capture inverted to
// playback: the teacher pushes captured frames onto a channel; Sink
// instead pulls frames from the renderer via PullFunc, run from
// malgo's Data callback.
type Sink struct {
	mu     sync.Mutex
	config Config

	ctx    *malgo.AllocatedContext
	device *malgo.Device
	cancel context.CancelFunc

	running atomic.Bool
	pull    PullFunc

	errorChan chan error
}

// New constructs a Sink. Call Start to open and run the device.
func New(config Config) *Sink {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 2
	}
	return &Sink{config: config, errorChan: make(chan error, 10)}
}

// Errors returns a channel emitting device-level errors (e.g.
// unexpected stop) the pipeline should observe.
func (s *Sink) Errors() <-chan error { return s.errorChan }

// Start opens the playback device and begins calling pull on malgo's
// realtime audio thread.
func (s *Sink) Start(ctx context.Context, pull PullFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return streamerrors.Newf("sink already running").
			Component("sink").Category(streamerrors.CategoryInvalidParameter).Build()
	}

	logCapabilities()

	backend, err := backendForPlatform()
	if err != nil {
		return err
	}

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "init-context").Build()
	}

	devices, err := malgoCtx.Devices(malgo.Playback)
	if err != nil {
		_ = malgoCtx.Uninit()
		return streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "enumerate-devices").Build()
	}
	deviceInfo, err := selectDevice(devices, s.config.DeviceName)
	if err != nil {
		_ = malgoCtx.Uninit()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = s.config.Channels
	deviceConfig.Playback.DeviceID = deviceInfo.ID.Pointer()
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	_, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pull = pull

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		cancel()
		_ = malgoCtx.Uninit()
		return streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "init-device").
			Context("device_name", s.config.DeviceName).Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		cancel()
		_ = malgoCtx.Uninit()
		return streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "start-device").Build()
	}

	s.ctx, s.device = malgoCtx, device
	s.running.Store(true)
	return nil
}

// Stop halts playback and releases the device.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx = nil
	}
	s.running.Store(false)
	return nil
}

// IsRunning reports whether the device is currently active.
func (s *Sink) IsRunning() bool { return s.running.Load() }

// onData is malgo's realtime callback: it asks pull to fill a Float32
// scratch buffer, zero-fills any remainder on underrun, and encodes the
// result into pOutput's raw Float32LE bytes.
func (s *Sink) onData(pOutput, pInput []byte, frameCount uint32) {
	channels := int(s.config.Channels)
	floatBuf := make([]float32, int(frameCount)*channels)

	n := s.pull(floatBuf, int(frameCount))
	if n < int(frameCount) {
		for i := n * channels; i < len(floatBuf); i++ {
			floatBuf[i] = 0
		}
	}
	encodeF32LE(floatBuf, pOutput)
}

func (s *Sink) onStop() {
	err := streamerrors.Newf("playback device stopped unexpectedly").
		Component("sink").Category(streamerrors.CategoryResourceAlloc).Build()
	select {
	case s.errorChan <- err:
	default:
	}
}

func encodeF32LE(in []float32, out []byte) {
	for i := 0; i < len(in) && i*4+4 <= len(out); i++ {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(in[i]))
	}
}
