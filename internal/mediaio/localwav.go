package mediaio

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/models"
)

// WAVSource decodes a local .wav file directly in Go, bypassing the
// external media tool for the common local-playback case (spec §6:
// "direct Go decoders... for local playback without shelling out").
// Grounded on the teacher's audiocore/export WAV encoder, mirrored for
// decode, and on go-audio/wav's PCMBuffer streaming decode API.
type WAVSource struct {
	file    *os.File
	decoder *wav.Decoder
	info    models.StreamInfo
}

// OpenWAV opens path and reads its header, populating StreamInfo.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryConnectionFailed).
			Context("path", path).Build()
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		_ = f.Close()
		return nil, streamerrors.Newf("not a valid WAV file: %s", path).
			Component("mediaio").Category(streamerrors.CategoryUnsupportedFormat).Build()
	}
	d.ReadInfo()

	var duration *float64
	if dur, err := d.Duration(); err == nil {
		secs := dur.Seconds()
		duration = &secs
	}

	return &WAVSource{
		file:    f,
		decoder: d,
		info: models.StreamInfo{
			URL:           "file://" + path,
			HasAudio:      true,
			AudioCodec:    "pcm_s16le",
			SampleRate:    int(d.SampleRate),
			ChannelCount:  int(d.NumChans),
			BitDepth:      int(d.BitDepth),
			Duration:      duration,
			ContainerName: "wav",
		},
	}, nil
}

// StreamInfo returns the probed stream descriptor.
func (w *WAVSource) StreamInfo() models.StreamInfo { return w.info }

// ReadInto decodes up to len(buf.Samples)/ChannelCount frames into buf,
// returning the number of frames actually filled (less than requested
// at end of stream).
func (w *WAVSource) ReadInto(buf *models.AudioBuffer) (int, error) {
	pcmBuf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: buf.ChannelCount, SampleRate: buf.SampleRate},
		Data:   make([]int, buf.FrameCount*buf.ChannelCount),
	}
	err := w.decoder.PCMBuffer(pcmBuf)
	if err != nil && err != io.EOF {
		return 0, streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryDecodingFailed).Build()
	}

	n := len(pcmBuf.Data)
	frames := n / buf.ChannelCount
	scale := float32(1.0 / float32(int32(1)<<(uint(w.info.BitDepth)-1)))
	for i := 0; i < n; i++ {
		buf.Samples[i] = float32(pcmBuf.Data[i]) * scale
	}
	if frames < buf.FrameCount {
		for i := frames * buf.ChannelCount; i < len(buf.Samples); i++ {
			buf.Samples[i] = 0
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return frames, nil
}

// Close releases the underlying file handle.
func (w *WAVSource) Close() error {
	return w.file.Close()
}
