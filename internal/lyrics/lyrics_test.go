package lyrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLRCHeadersAndLines(t *testing.T) {
	content := `[ti:Test Song]
[ar:Test Artist]
[al:Test Album]
[offset:+500]
[00:10.00]First line
[00:05.50]Second line written first but earlier
[00:20.00][00:40.00]Repeated line
`
	lrc, err := ParseLRC(content)
	require.NoError(t, err)
	assert.Equal(t, "Test Song", lrc.Title)
	assert.Equal(t, "Test Artist", lrc.Artist)
	assert.Equal(t, "Test Album", lrc.Album)
	assert.Equal(t, 500, lrc.OffsetMS)
	require.Len(t, lrc.Lines, 4)
	assert.InDelta(t, 5.5, lrc.Lines[0].TimeS, 0.001)
	assert.InDelta(t, 10.0, lrc.Lines[1].TimeS, 0.001)
	assert.InDelta(t, 20.0, lrc.Lines[2].TimeS, 0.001)
	assert.InDelta(t, 40.0, lrc.Lines[3].TimeS, 0.001)
}

func TestParseLRCEnhancedWordTimestamps(t *testing.T) {
	content := `[00:10.00]<00:10.00>Hello <00:10.50>world`
	lrc, err := ParseLRC(content)
	require.NoError(t, err)
	require.Len(t, lrc.Lines, 1)
	line := lrc.Lines[0]
	assert.Equal(t, "Hello world", line.Text)
	require.Len(t, line.Words, 2)
	assert.Equal(t, "Hello", line.Words[0].Word)
	assert.InDelta(t, 0.0, line.Words[0].OffsetS, 0.001)
	assert.Equal(t, "world", line.Words[1].Word)
	assert.InDelta(t, 0.5, line.Words[1].OffsetS, 0.001)
}

func TestParseLRCMillisecondPrecision(t *testing.T) {
	content := `[00:01.123]Precise line`
	lrc, err := ParseLRC(content)
	require.NoError(t, err)
	require.Len(t, lrc.Lines, 1)
	assert.InDelta(t, 1.123, lrc.Lines[0].TimeS, 0.0005)
}

func TestSyncerFiresOnSyncOnLineChange(t *testing.T) {
	lrc := &Lyrics{Lines: []Line{
		{TimeS: 0, Text: "line one"},
		{TimeS: 5, Text: "line two"},
		{TimeS: 10, Text: "line three"},
	}}

	var events []SyncEvent
	syncer := NewSyncer(lrc, func(e SyncEvent) { events = append(events, e) })

	syncer.Update(0.5)
	syncer.Update(1.0)
	syncer.Update(5.5)
	syncer.Update(11.0)

	require.Len(t, events, 3)
	assert.Equal(t, 0, events[0].LineIndex)
	assert.Equal(t, 1, events[1].LineIndex)
	assert.Equal(t, 2, events[2].LineIndex)
}

func TestSyncerRespectsUserOffset(t *testing.T) {
	lrc := &Lyrics{Lines: []Line{
		{TimeS: 0, Text: "line one"},
		{TimeS: 10, Text: "line two"},
	}}

	var lastEvent SyncEvent
	syncer := NewSyncer(lrc, func(e SyncEvent) { lastEvent = e })
	syncer.SetOffset(11)
	syncer.Update(0)

	assert.Equal(t, 1, lastEvent.LineIndex)
}

func TestSyncerNearbyLines(t *testing.T) {
	lrc := &Lyrics{Lines: []Line{
		{TimeS: 0, Text: "a"},
		{TimeS: 1, Text: "b"},
		{TimeS: 2, Text: "c"},
		{TimeS: 3, Text: "d"},
		{TimeS: 4, Text: "e"},
	}}
	syncer := NewSyncer(lrc, nil)
	syncer.Update(2.5)
	nearby := syncer.NearbyLines(1)
	require.Len(t, nearby, 3)
	assert.Equal(t, "b", nearby[0].Text)
	assert.Equal(t, "c", nearby[1].Text)
	assert.Equal(t, "d", nearby[2].Text)
}

func TestLevenshteinSimilarityIdenticalIsOne(t *testing.T) {
	assert.Equal(t, 1.0, levenshteinSimilarity("hello", "hello"))
}

func TestLevenshteinSimilarityOfCloseStringsIsHigh(t *testing.T) {
	sim := levenshteinSimilarity("hello world", "hello wrld")
	assert.Greater(t, sim, 0.8)
}

func TestAlignMatchesWordsWithinWindowAboveThreshold(t *testing.T) {
	lines := []Line{{TimeS: 10, Text: "hello beautiful world"}}
	words := []RecognizedWord{
		{Text: "hello", StartS: 10.0, EndS: 10.4, Prob: 0.9},
		{Text: "beautiful", StartS: 10.4, EndS: 11.0, Prob: 0.9},
		{Text: "world", StartS: 11.0, EndS: 11.4, Prob: 0.9},
	}

	result := Align(words, lines, nil)
	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].Matched)
	assert.Greater(t, result.Lines[0].Confidence, 0.6)
	assert.NotEmpty(t, result.Lines[0].Words)
}

func TestAlignLeavesLineUnmatchedBelowThreshold(t *testing.T) {
	lines := []Line{{TimeS: 10, Text: "completely unrelated lyrics text"}}
	words := []RecognizedWord{
		{Text: "xyz", StartS: 10.0, EndS: 10.3, Prob: 0.5},
		{Text: "abc", StartS: 10.3, EndS: 10.6, Prob: 0.5},
	}

	result := Align(words, lines, nil)
	require.Len(t, result.Lines, 1)
	assert.False(t, result.Lines[0].Matched)
}

func TestExportEnhancedLRCProducesPerCharacterTimestamps(t *testing.T) {
	aligned := AlignedLyrics{Lines: []AlignedLine{
		{
			Line: Line{TimeS: 1, Text: "hi there"},
			Words: []WordTimestamp{
				{OffsetS: 0, Word: "hi"},
				{OffsetS: 0.5, Word: "there"},
			},
			Matched: true,
		},
	}}

	out := ExportEnhancedLRC(aligned)
	assert.Contains(t, out, "[00:01.00]")
	assert.Contains(t, out, "<00:01.00>h")
}
