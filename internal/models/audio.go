// Package models holds the plain data types shared across streamcore's
// pipeline, renderer, effect chain, and analysis packages: AudioBuffer,
// VideoFrame, StreamInfo, the EqBand table, PlaybackState, and the A/V
// clock. These are value types with simple derived properties, not
// services — components depend on them without depending on each other.
package models

import "fmt"

// AudioBuffer exclusively owns a contiguous block of interleaved 32-bit
// float samples. len(Samples) must equal FrameCount*ChannelCount.
// Ownership transfers to the renderer queue on enqueue; the renderer
// releases it after full consumption.
type AudioBuffer struct {
	Samples     []float32
	FrameCount  int
	ChannelCount int
	SampleRate  int
}

// NewAudioBuffer allocates a buffer sized for frameCount*channelCount
// samples, zero-filled.
func NewAudioBuffer(frameCount, channelCount, sampleRate int) *AudioBuffer {
	return &AudioBuffer{
		Samples:      make([]float32, frameCount*channelCount),
		FrameCount:   frameCount,
		ChannelCount: channelCount,
		SampleRate:   sampleRate,
	}
}

// Validate reports whether the buffer's invariant len(Samples) ==
// FrameCount*ChannelCount holds.
func (b *AudioBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("models: nil audio buffer")
	}
	want := b.FrameCount * b.ChannelCount
	if len(b.Samples) != want {
		return fmt.Errorf("models: audio buffer invariant violated: len(samples)=%d want frame_count*channel_count=%d", len(b.Samples), want)
	}
	return nil
}

// FramesRemaining returns the number of frames still unconsumed starting
// at offset (in frames, not samples).
func (b *AudioBuffer) FramesRemaining(offsetFrames int) int {
	remaining := b.FrameCount - offsetFrames
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VideoFrame owns a platform pixel buffer plus presentation metadata. It
// is immutable after creation.
type VideoFrame struct {
	Pixels   []byte
	PTS      float64 // seconds
	Duration float64 // seconds
	Width    int
	Height   int
}
