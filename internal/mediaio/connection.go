package mediaio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"time"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
	"github.com/loomaudio/streamcore/internal/models"
)

// ConnectTimeout is the wall-clock budget for opening a source before
// escalating to error(connection_timeout), per spec §4.1/§5.
const ConnectTimeout = 10 * time.Second

// MaxReadRetries is the consecutive transient-read-failure budget
// before escalating to error(network_disconnected), per spec §4.1.
const MaxReadRetries = 10

// Decoder is whatever can deliver decoded PCM frames into an
// AudioBuffer, satisfied by the local FLAC/WAV sources and, for every
// other container/codec in spec §6's table, the external-process
// adapter.
type Decoder interface {
	StreamInfo() models.StreamInfo
	ReadInto(buf *models.AudioBuffer) (int, error)
	Close() error
}

// processDecoder adapts a running Process's raw byte stream to the
// Decoder interface, assuming f32le output at the configured rate.
type processDecoder struct {
	proc    *Process
	info    models.StreamInfo
	pending []byte
}

func (d *processDecoder) StreamInfo() models.StreamInfo { return d.info }

func (d *processDecoder) ReadInto(buf *models.AudioBuffer) (int, error) {
	wantBytes := buf.FrameCount * buf.ChannelCount * 4
	for len(d.pending) < wantBytes {
		chunk, ok := <-d.proc.AudioOutput()
		if !ok {
			if len(d.pending) == 0 {
				return 0, io.EOF
			}
			break
		}
		d.pending = append(d.pending, chunk...)
	}

	n := len(d.pending)
	if n > wantBytes {
		n = wantBytes
	}
	frames := n / (buf.ChannelCount * 4)
	decodeF32LE(d.pending[:frames*buf.ChannelCount*4], buf.Samples)
	d.pending = d.pending[frames*buf.ChannelCount*4:]
	return frames, nil
}

func (d *processDecoder) Close() error {
	return d.proc.Stop()
}

func decodeF32LE(raw []byte, out []float32) {
	for i := 0; i*4+4 <= len(raw) && i < len(out); i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		out[i] = math.Float32frombits(bits)
	}
}

// Connection opens a URL (local file or network stream per spec §6's
// scheme list) and returns a Decoder, choosing between the direct Go
// decoders for local lossless files and the external-process adapter
// for everything else, per spec §4.1/§6.
type Connection struct {
	toolPath   string
	cache      *ProbeCache
	sampleRate int
	channels   int
	bitDepth   int
}

// NewConnection constructs a Connection that shells out to toolPath
// (the external media tool) for non-local sources, targeting the given
// hardware output format.
func NewConnection(toolPath string, sampleRate, channels, bitDepth int) *Connection {
	return &Connection{
		toolPath:   toolPath,
		cache:      NewProbeCache(),
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
	}
}

// Open connects to url, honoring ConnectTimeout, and returns a Decoder
// plus its probed StreamInfo.
func (c *Connection) Open(ctx context.Context, url string) (Decoder, models.StreamInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	log := logging.ForComponent("mediaio.connection")

	if IsLocalFile(url) {
		dec, err := c.openLocal(url)
		if err != nil {
			return nil, models.StreamInfo{}, err
		}
		info := dec.StreamInfo()
		c.cache.Set(url, info)
		return dec, info, nil
	}

	if _, ok := c.cache.Get(url); ok {
		log.Debug("probe cache hit, reconnecting anyway for a live decoder", "url", url)
	}

	dec, err := c.openExternal(ctx, url)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, models.StreamInfo{}, streamerrors.New(err).Component("mediaio").
				Category(streamerrors.CategoryConnectionTimeout).
				Context("url", url).Build()
		}
		return nil, models.StreamInfo{}, streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryConnectionFailed).
			Context("url", url).Build()
	}

	info := dec.StreamInfo()
	c.cache.Set(url, info)
	return dec, info, nil
}

func (c *Connection) openLocal(url string) (Decoder, error) {
	path := LocalFilePath(url)
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".flac"):
		return OpenFLAC(path)
	case strings.HasSuffix(lower, ".wav"):
		return OpenWAV(path)
	default:
		return c.openExternal(context.Background(), url)
	}
}

func (c *Connection) openExternal(ctx context.Context, url string) (Decoder, error) {
	cfg := &ProcessConfig{
		ID:           "connection",
		ToolPath:     c.toolPath,
		InputURL:     url,
		OutputFormat: "f32le",
		SampleRate:   c.sampleRate,
		Channels:     c.channels,
	}
	proc := NewProcess(cfg)
	if err := proc.Start(ctx); err != nil {
		return nil, err
	}

	info := models.StreamInfo{
		URL:          url,
		HasAudio:     true,
		SampleRate:   c.sampleRate,
		ChannelCount: c.channels,
		BitDepth:     c.bitDepth,
		AudioCodec:   "pcm_f32le",
	}
	return &processDecoder{proc: proc, info: info}, nil
}

// ReadWithRetry wraps dec.ReadInto with spec §4.1's consecutive-failure
// budget: up to MaxReadRetries transient failures are absorbed before
// the error is returned to the caller for escalation to
// error(network_disconnected).
func ReadWithRetry(dec Decoder, buf *models.AudioBuffer) (int, error) {
	var lastErr error
	for attempt := 0; attempt < MaxReadRetries; attempt++ {
		n, err := dec.ReadInto(buf)
		if err == nil || err == io.EOF {
			return n, err
		}
		lastErr = err
	}
	return 0, streamerrors.New(lastErr).Component("mediaio").
		Category(streamerrors.CategoryNetworkDisconnect).
		Context("consecutive_failures", MaxReadRetries).Build()
}
