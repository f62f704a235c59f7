package analyzer

import "github.com/loomaudio/streamcore/internal/config"

// Beat is one detected onset, in seconds from the start of the buffer,
// with downbeat marking every 4th beat per spec §4.6.
type Beat struct {
	TimeS    float64
	Downbeat bool
}

type beatTunables struct {
	window, hop       int
	smoothTaps        int
	localMeanFrames   int
	localMeanFactor   float64
	downbeatInterval  int
}

func resolveBeatTunables(eng *config.Engine) beatTunables {
	t := beatTunables{window: 512, hop: 128, smoothTaps: 11, localMeanFrames: 20, localMeanFactor: 1.5, downbeatInterval: 4}
	if eng == nil {
		return t
	}
	if eng.AnalyzerEnvelopeWindow > 0 {
		t.window = eng.AnalyzerEnvelopeWindow
	}
	if eng.AnalyzerEnvelopeHop > 0 {
		t.hop = eng.AnalyzerEnvelopeHop
	}
	if eng.AnalyzerOnsetSmoothTaps > 0 {
		t.smoothTaps = eng.AnalyzerOnsetSmoothTaps
	}
	if eng.AnalyzerBeatLocalMeanFrames > 0 {
		t.localMeanFrames = eng.AnalyzerBeatLocalMeanFrames
	}
	if eng.AnalyzerBeatLocalMeanFactor > 0 {
		t.localMeanFactor = eng.AnalyzerBeatLocalMeanFactor
	}
	if eng.AnalyzerBeatDownbeatInterval > 0 {
		t.downbeatInterval = eng.AnalyzerBeatDownbeatInterval
	}
	return t
}

// AnalyzeBeats finds onset envelope peaks exceeding 1.5x their local
// mean over a +/-20-frame window, per spec §4.6's Beats bullet, marking
// every 4th detected beat as a downbeat.
func AnalyzeBeats(mono []float32, sampleRate int, eng *config.Engine) []Beat {
	t := resolveBeatTunables(eng)
	if sampleRate <= 0 {
		return nil
	}

	envelope := rmsEnvelope(mono, t.window, t.hop)
	onset := onsetEnvelope(envelope, t.smoothTaps)
	if len(onset) < 3 {
		return nil
	}

	frameRate := float64(sampleRate) / float64(t.hop)

	var beats []Beat
	for i := 1; i < len(onset)-1; i++ {
		if onset[i] <= onset[i-1] || onset[i] <= onset[i+1] {
			continue
		}
		localMean := localMean(onset, i, t.localMeanFrames)
		if onset[i] < localMean*t.localMeanFactor {
			continue
		}
		beats = append(beats, Beat{TimeS: float64(i) / frameRate})
	}

	for i := range beats {
		beats[i].Downbeat = i%t.downbeatInterval == 0
	}
	return beats
}

func localMean(series []float64, center, radius int) float64 {
	start := center - radius
	if start < 0 {
		start = 0
	}
	end := center + radius
	if end >= len(series) {
		end = len(series) - 1
	}
	var sum float64
	count := 0
	for i := start; i <= end; i++ {
		if i == center {
			continue
		}
		sum += series[i]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
