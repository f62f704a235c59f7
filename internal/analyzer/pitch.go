package analyzer

import (
	"math"
	"strconv"

	"github.com/loomaudio/streamcore/internal/config"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchResult is spec §4.6's Pitch analysis: fundamental frequency,
// nearest MIDI note, note name, and cent deviation from it.
type PitchResult struct {
	FrequencyHz float64
	MIDI        float64
	NoteName    string
	CentsOff    float64
	Detected    bool
}

type pitchTunables struct {
	minHz, maxHz float64
	window       int
}

func resolvePitchTunables(eng *config.Engine) pitchTunables {
	t := pitchTunables{minHz: 50, maxHz: 2000, window: 4096}
	if eng == nil {
		return t
	}
	if eng.AnalyzerPitchMinHz > 0 {
		t.minHz = eng.AnalyzerPitchMinHz
	}
	if eng.AnalyzerPitchMaxHz > 0 {
		t.maxHz = eng.AnalyzerPitchMaxHz
	}
	if eng.AnalyzerPitchWindowSamples > 0 {
		t.window = eng.AnalyzerPitchWindowSamples
	}
	return t
}

// AnalyzePitch autocorrelates a centered 4096-sample slice of mono over
// the lag range implied by 50-2000 Hz, converts the best lag to Hz, and
// names the nearest MIDI note, per spec §4.6's Pitch bullet.
func AnalyzePitch(mono []float32, sampleRate int, eng *config.Engine) PitchResult {
	t := resolvePitchTunables(eng)
	if sampleRate <= 0 || len(mono) < t.window {
		return PitchResult{}
	}

	start := (len(mono) - t.window) / 2
	slice := make([]float64, t.window)
	for i := 0; i < t.window; i++ {
		slice[i] = float64(mono[start+i])
	}

	minLag := int(float64(sampleRate) / t.maxHz)
	maxLag := int(float64(sampleRate) / t.minHz)
	corr := autocorrelate(slice, minLag, maxLag)
	if len(corr) == 0 {
		return PitchResult{}
	}

	bestIdx, bestVal := 0, corr[0]
	for i, v := range corr {
		if v > bestVal {
			bestVal, bestIdx = v, i
		}
	}
	if bestVal <= 0 {
		return PitchResult{}
	}

	lag := minLag + bestIdx
	if lag <= 0 {
		return PitchResult{}
	}
	freq := float64(sampleRate) / float64(lag)

	midi := 69 + 12*math.Log2(freq/440)
	rounded := math.Round(midi)
	noteIdx := int(rounded) % 12
	if noteIdx < 0 {
		noteIdx += 12
	}
	octave := int(rounded)/12 - 1
	cents := (midi - rounded) * 100

	return PitchResult{
		FrequencyHz: freq,
		MIDI:        midi,
		NoteName:    noteNameWithOctave(noteIdx, octave),
		CentsOff:    cents,
		Detected:    true,
	}
}

func noteNameWithOctave(noteIdx, octave int) string {
	return noteNames[noteIdx] + strconv.Itoa(octave)
}
