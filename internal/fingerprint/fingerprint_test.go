package fingerprint

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 22050

func sineTone(freqHz float64, seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate)))
	}
	return out
}

// melody concatenates a short sequence of distinct tones, giving the
// fingerprinter spectral content that varies over time (a stationary
// single tone repeats identical peaks at every frame, which degenerates
// self-matching's offset-mode voting).
func melody(freqsHz []float64, perNoteSeconds float64, sampleRate int) []float32 {
	var out []float32
	for _, f := range freqsHz {
		out = append(out, sineTone(f, perNoteSeconds, sampleRate)...)
	}
	return out
}

func whiteNoise(seed int64, seconds float64, sampleRate int) []float32 {
	r := rand.New(rand.NewSource(seed))
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(r.Float64()*2 - 1)
	}
	return out
}

func TestHashPacked32RoundTripsWithinBitWidth(t *testing.T) {
	h := Hash{AnchorFreqHz: 440, TargetFreqHz: 880, TimeDelta: 3, AnchorTime: 12}
	packed := h.Packed32()
	assert.Equal(t, uint32(440)<<20|uint32(880)<<8|uint32(3), packed)
}

func TestGenerateProducesHashesForSineTone(t *testing.T) {
	samples := sineTone(440, 5, testSampleRate)
	fp, err := Generate(samples, testSampleRate, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, fp.Hashes)
	assert.InDelta(t, 5.0, fp.Duration, 0.1)
	assert.Equal(t, testSampleRate, fp.SampleRate)
}

func TestGenerateRejectsInvalidSampleRate(t *testing.T) {
	_, err := Generate([]float32{1, 2, 3}, 0, nil)
	assert.Error(t, err)
}

var testMelody = []float64{262, 294, 330, 349, 392, 440, 494, 523, 587, 659, 698, 784, 880, 988, 1047}

func TestSimilaritySelfIsOne(t *testing.T) {
	samples := melody(testMelody, 2, testSampleRate)
	fp, err := Generate(samples, testSampleRate, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, Similarity(fp, fp))
}

func TestSimilarityOfDistinctNoiseIsLow(t *testing.T) {
	a, err := Generate(whiteNoise(1, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	b, err := Generate(whiteNoise(2, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	assert.Less(t, Similarity(a, b), 0.05)
}

func TestRecognizeFindsMatchingEntryAboveThreshold(t *testing.T) {
	samples := melody(testMelody, 2, testSampleRate)
	target, err := Generate(samples, testSampleRate, nil)
	require.NoError(t, err)

	other, err := Generate(whiteNoise(3, 30, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)

	entries := map[string]*Fingerprint{
		"target": target,
		"other":  other,
	}

	matches := Recognize(target, entries, 0.1, nil)
	require.NotEmpty(t, matches)
	assert.Equal(t, "target", matches[0].ID)
	assert.GreaterOrEqual(t, matches[0].RawScore, 0.8)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.9)
}

func TestRecognizeOneReturnsFalseWhenNothingScores(t *testing.T) {
	a, err := Generate(whiteNoise(10, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	b, err := Generate(whiteNoise(11, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)

	_, ok := RecognizeOne(a, map[string]*Fingerprint{"b": b}, nil)
	assert.False(t, ok)
}

func TestDBAddSnapshotRemove(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "fingerprints.db"))
	require.NoError(t, err)
	defer db.Close()

	fp, err := Generate(sineTone(330, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)

	require.NoError(t, db.Add(Entry{ID: "song-1", Title: "Test Song", Fingerprint: fp, AddedAt: time.Now()}))

	snap, err := db.Snapshot()
	require.NoError(t, err)
	require.Contains(t, snap, "song-1")

	require.NoError(t, db.Remove("song-1"))
	snap, err = db.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, snap, "song-1")
}

func TestDBRecognizeUsesCacheOnRepeatedQuery(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "fingerprints.db"))
	require.NoError(t, err)
	defer db.Close()

	fp, err := Generate(sineTone(660, 10, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	require.NoError(t, db.Add(Entry{ID: "song-1", Fingerprint: fp, AddedAt: time.Now()}))

	m1, err := db.Recognize(fp, 0.1, nil)
	require.NoError(t, err)
	require.NotEmpty(t, m1)

	m2, err := db.Recognize(fp, 0.1, nil)
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestDBExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	defer db.Close()

	fp, err := Generate(sineTone(220, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	require.NoError(t, db.Add(Entry{ID: "song-1", Title: "A", Fingerprint: fp, AddedAt: time.Now()}))

	exportPath := filepath.Join(dir, "export.json")
	require.NoError(t, db.Export(exportPath))

	db2, err := Open(filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	defer db2.Close()

	require.NoError(t, db2.Import(exportPath))
	snap, err := db2.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, snap, "song-1")
}

func TestDBImportRejectsTamperedChecksum(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	defer db.Close()

	fp, err := Generate(sineTone(220, 5, testSampleRate), testSampleRate, nil)
	require.NoError(t, err)
	require.NoError(t, db.Add(Entry{ID: "song-1", Fingerprint: fp, AddedAt: time.Now()}))

	exportPath := filepath.Join(dir, "export.json")
	require.NoError(t, db.Export(exportPath))

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	data = append(data, []byte("tamper")...)
	require.NoError(t, os.WriteFile(exportPath, data, 0o644))

	db2, err := Open(filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	defer db2.Close()

	err = db2.Import(exportPath)
	assert.Error(t, err)
}
