package fileproc

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
)

// TrimWAV extracts [startS, endS) from the local WAV file in into out
// by decoding PCM frames directly, without shelling out to the
// external media tool. endS <= startS means "to end of file". Grounded
// on tphakala-birdnet-go's readAudioData: wav.NewDecoder plus
// decoder.PCMBuffer into an audio.IntBuffer.
func TrimWAV(in, out string, startS, endS float64) error {
	inFile, err := os.Open(in)
	if err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "open-input").Context("path", in).Build()
	}
	defer inFile.Close()

	dec := wav.NewDecoder(inFile)
	if !dec.IsValidFile() {
		return streamerrors.Newf("fileproc: %s is not a valid WAV file", in).
			Component("fileproc").Category(streamerrors.CategoryInvalidParameter).Build()
	}
	dec.ReadInfo()

	sampleRate := int(dec.SampleRate)
	numChans := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)

	startFrame := int(startS * float64(sampleRate))
	var endFrame int
	if endS > startS {
		endFrame = int(endS * float64(sampleRate))
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: numChans},
		Data:   make([]int, 4096*numChans),
	}

	var trimmed []int
	frame := 0
	for {
		n, rerr := dec.PCMBuffer(buf)
		if n == 0 || rerr != nil {
			break
		}
		frames := n / numChans
		for f := 0; f < frames; f++ {
			if frame >= startFrame && (endFrame == 0 || frame < endFrame) {
				trimmed = append(trimmed, buf.Data[f*numChans:(f+1)*numChans]...)
			}
			frame++
		}
		if endFrame != 0 && frame >= endFrame {
			break
		}
	}

	outFile, err := os.Create(out)
	if err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "create-output").Context("path", out).Build()
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, sampleRate, bitDepth, numChans, 1)
	outBuf := &audio.IntBuffer{
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: numChans},
		Data:   trimmed,
	}
	if err := enc.Write(outBuf); err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryDecodingFailed).
			Context("operation", "write-trimmed-wav").Build()
	}
	return enc.Close()
}
