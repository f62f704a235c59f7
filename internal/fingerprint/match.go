package fingerprint

import (
	"sort"

	"github.com/loomaudio/streamcore/internal/config"
)

// Match is one scored candidate from a recognize query (spec §4.5
// matching steps 3-5).
type Match struct {
	ID           string
	RawScore     float64
	Confidence   float64
	TimeOffsetS  float64
	MatchedCount int
}

// queryTable maps a query fingerprint's packed-32 hashes to the list of
// AnchorTime values sharing that key, per matching step 1.
func queryTable(query *Fingerprint) map[uint32][]uint32 {
	table := make(map[uint32][]uint32, len(query.Hashes))
	for _, h := range query.Hashes {
		k := h.Packed32()
		table[k] = append(table[k], h.AnchorTime)
	}
	return table
}

// score runs matching steps 2-4 against one candidate: count matching
// packed keys, collect per-match offsets, and vote the mode offset.
func score(table map[uint32][]uint32, queryHashCount int, candidate *Fingerprint) (rawScore float64, bestOffset int64, confidence float64, matched int) {
	offsetCounts := make(map[int64]int)
	for _, h := range candidate.Hashes {
		queryTimes, ok := table[h.Packed32()]
		if !ok {
			continue
		}
		for _, qt := range queryTimes {
			offset := int64(h.AnchorTime) - int64(qt)
			offsetCounts[offset]++
			matched++
		}
	}
	if matched == 0 {
		return 0, 0, 0, 0
	}

	var bestCount int
	for offset, count := range offsetCounts {
		if count > bestCount || (count == bestCount && offset < bestOffset) {
			bestCount = count
			bestOffset = offset
		}
	}

	denom := queryHashCount
	if len(candidate.Hashes) > denom {
		denom = len(candidate.Hashes)
	}
	if denom == 0 {
		return 0, 0, 0, 0
	}
	rawScore = float64(matched) / float64(denom)
	confidence = float64(bestCount) / float64(matched)
	return rawScore, bestOffset, confidence, matched
}

// Recognize scores query against every candidate in entries, keeping
// only those at or above minScore, ranked by raw score descending, per
// spec §4.5 matching step 5. hop/sampleRate come from query so the
// reported time offset is expressed in seconds.
func Recognize(query *Fingerprint, entries map[string]*Fingerprint, minScore float64, eng *config.Engine) []Match {
	if query == nil || len(entries) == 0 {
		return nil
	}
	t := resolveTunables(eng)
	table := queryTable(query)

	var matches []Match
	for id, candidate := range entries {
		raw, offset, confidence, matched := score(table, len(query.Hashes), candidate)
		if raw < minScore {
			continue
		}
		matches = append(matches, Match{
			ID:           id,
			RawScore:     raw,
			Confidence:   confidence,
			TimeOffsetS:  float64(offset) * float64(t.hop) / float64(query.SampleRate),
			MatchedCount: matched,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].RawScore > matches[j].RawScore })
	return matches
}

// Search runs Recognize with spec §4.5's default search threshold
// (0.05), returning every candidate above it.
func Search(query *Fingerprint, entries map[string]*Fingerprint, eng *config.Engine) []Match {
	t := resolveTunables(eng)
	return Recognize(query, entries, t.searchMinScore, eng)
}

// RecognizeOne runs Recognize with spec §4.5's default single-match
// threshold (0.1) and returns the best candidate, if any.
func RecognizeOne(query *Fingerprint, entries map[string]*Fingerprint, eng *config.Engine) (Match, bool) {
	t := resolveTunables(eng)
	matches := Recognize(query, entries, t.matchMinScore, eng)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
