package lyrics

import "sort"

// SyncEvent is delivered to an on_sync callback whenever the active
// line or word changes, per spec §4.7's Syncer bullet; ProgressInLine
// is reported with it but a change in progress alone fires nothing.
type SyncEvent struct {
	LineIndex      int
	Line           Line
	WordIndex      int
	ProgressInLine float64
}

// Syncer tracks the currently active lyric line against a playback
// clock plus a user-adjustable offset, and notifies a callback only
// when the active indices actually change.
type Syncer struct {
	lyrics     *Lyrics
	offset     float64
	onSync     func(SyncEvent)
	lastLine   int
	lastWord   int
	lastActive bool
}

// NewSyncer wraps lyrics with a callback fired on every sync state
// change. onSync may be nil, in which case Update just tracks state.
func NewSyncer(lyrics *Lyrics, onSync func(SyncEvent)) *Syncer {
	return &Syncer{lyrics: lyrics, onSync: onSync, lastLine: -1, lastWord: -1}
}

// SetOffset adjusts the user-controlled sync offset (delta), in
// seconds; positive values advance lyrics relative to audio (a line
// becomes active offsetS seconds before the playhead reaches its time).
func (s *Syncer) SetOffset(offsetS float64) {
	s.offset = offsetS
}

// Update advances the syncer to the current audio clock and fires
// onSync if the active line or word changed.
func (s *Syncer) Update(playheadS float64) {
	lineIdx := s.activeLine(playheadS)
	if lineIdx < 0 {
		s.lastActive = false
		return
	}

	line := s.lyrics.Lines[lineIdx]
	effective := playheadS + s.offset
	wordIdx, progress := wordProgress(line, effective)

	changed := !s.lastActive || lineIdx != s.lastLine || wordIdx != s.lastWord
	s.lastLine = lineIdx
	s.lastWord = wordIdx
	s.lastActive = true

	if changed && s.onSync != nil {
		s.onSync(SyncEvent{LineIndex: lineIdx, Line: line, WordIndex: wordIdx, ProgressInLine: progress})
	}
}

// activeLine binary-searches for the largest line index with
// time <= playheadS + offset, per spec §4.7's Syncer bullet.
func (s *Syncer) activeLine(playheadS float64) int {
	target := playheadS + s.offset
	lines := s.lyrics.Lines
	idx := sort.Search(len(lines), func(i int) bool { return lines[i].TimeS > target }) - 1
	if idx < 0 {
		return -1
	}
	return idx
}

func wordProgress(line Line, effectiveS float64) (int, float64) {
	if len(line.Words) == 0 {
		return -1, 0
	}
	offsetIntoLine := effectiveS - line.TimeS
	wordIdx := -1
	for i, w := range line.Words {
		if w.OffsetS <= offsetIntoLine {
			wordIdx = i
		} else {
			break
		}
	}
	if wordIdx < 0 {
		return -1, 0
	}
	lineEnd := line.Words[len(line.Words)-1].OffsetS
	if lineEnd <= 0 {
		return wordIdx, 1
	}
	progress := offsetIntoLine / lineEnd
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return wordIdx, progress
}

// NearbyLines returns lines [i-r, i+r] around the currently active
// line, for scroll UIs, per spec §4.7's "nearby_lines(range)" bullet.
func (s *Syncer) NearbyLines(radius int) []Line {
	if s.lastLine < 0 {
		return nil
	}
	start := s.lastLine - radius
	if start < 0 {
		start = 0
	}
	end := s.lastLine + radius
	if end >= len(s.lyrics.Lines) {
		end = len(s.lyrics.Lines) - 1
	}
	return s.lyrics.Lines[start : end+1]
}
