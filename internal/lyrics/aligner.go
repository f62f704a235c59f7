package lyrics

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/loomaudio/streamcore/internal/config"
)

// RecognizedWord is one word as reported by a speech-recognition
// backend: text plus its start/end time and a confidence probability.
type RecognizedWord struct {
	Text    string
	StartS  float64
	EndS    float64
	Prob    float64
}

// AlignedLine is a target LRC line after alignment: its original text
// is untouched, and Words carries one entry per matched word (the line's
// own word text with the matched recognized word's start time).
// Per-character times are derived from these by ExportEnhancedLRC.
type AlignedLine struct {
	Line
	Confidence float64
	Matched    bool
}

// AlignedLyrics is the output of Align: every target line plus an
// overall average confidence.
type AlignedLyrics struct {
	Lines             []AlignedLine
	AverageConfidence float64
}

var lowerCaser = cases.Lower(language.Und)

// Align matches recognized speech words against target LRC lines, per
// spec §4.7's Aligner bullet: for each target line, filter recognized
// words to [time-before, time+after], compute Levenshtein similarity
// between cleaned target text and the concatenated windowed
// recognized text, and if that similarity is at least minSimilarity,
// greedily match the word sequence and record each matched word's start
// against the line's own untouched words, in order.
func Align(words []RecognizedWord, lines []Line, eng *config.Engine) AlignedLyrics {
	windowBefore, windowAfter, minSimilarity := alignerTunables(eng)

	result := AlignedLyrics{Lines: make([]AlignedLine, len(lines))}
	var totalConfidence float64

	for i, line := range lines {
		windowed := wordsInWindow(words, line.TimeS-windowBefore, line.TimeS+windowAfter)
		cleanTarget := cleanText(line.Text)
		cleanWindowed := cleanText(joinWords(windowed))

		similarity := levenshteinSimilarity(cleanTarget, cleanWindowed)
		aligned := AlignedLine{Line: line, Confidence: similarity}

		if similarity >= minSimilarity {
			matchedWords := greedyMatchWords(line.Text, windowed)
			aligned.Words = allocateCharacterTimestamps(line.Text, line.TimeS, matchedWords)
			aligned.Matched = true
		}

		result.Lines[i] = aligned
		totalConfidence += similarity
	}

	if len(lines) > 0 {
		result.AverageConfidence = totalConfidence / float64(len(lines))
	}
	return result
}

func alignerTunables(eng *config.Engine) (before, after, minSimilarity float64) {
	before, after, minSimilarity = 5, 10, 0.6
	if eng == nil {
		return
	}
	if eng.AlignerWindowBeforeS > 0 {
		before = eng.AlignerWindowBeforeS.Seconds()
	}
	if eng.AlignerWindowAfterS > 0 {
		after = eng.AlignerWindowAfterS.Seconds()
	}
	if eng.AlignerMinSimilarity > 0 {
		minSimilarity = eng.AlignerMinSimilarity
	}
	return
}

func wordsInWindow(words []RecognizedWord, fromS, toS float64) []RecognizedWord {
	var out []RecognizedWord
	for _, w := range words {
		if w.StartS >= fromS && w.StartS <= toS {
			out = append(out, w)
		}
	}
	return out
}

func joinWords(words []RecognizedWord) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// cleanText strips punctuation and spaces and lowercases, per spec
// §4.7's "cleaned target text (strip punctuation/spaces, lowercase)".
func cleanText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return lowerCaser.String(b.String())
}

// levenshteinSimilarity is 1 - (edit distance / max length), a
// normalized similarity in [0, 1]. No corpus example imports a
// Levenshtein library, so this is a direct stdlib implementation of
// the standard dynamic-programming recurrence.
func levenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	distance := levenshteinDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(distance)/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost
			curr[j] = minInt(deletion, minInt(insertion, substitution))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// greedyMatchWords walks target's words in order, consuming windowed
// recognized words left-to-right and pairing each target word with
// the next recognized word whose cleaned text matches (or, failing
// that, the next recognized word positionally), per spec §4.7's
// "greedily match word sequence" bullet.
func greedyMatchWords(targetText string, windowed []RecognizedWord) []RecognizedWord {
	targetWords := strings.Fields(targetText)
	matched := make([]RecognizedWord, 0, len(targetWords))
	cursor := 0
	for _, tw := range targetWords {
		cleanTW := cleanText(tw)
		found := -1
		for k := cursor; k < len(windowed); k++ {
			if cleanText(windowed[k].Text) == cleanTW {
				found = k
				break
			}
		}
		if found == -1 {
			if cursor < len(windowed) {
				matched = append(matched, windowed[cursor])
				cursor++
			}
			continue
		}
		matched = append(matched, windowed[found])
		cursor = found + 1
	}
	return matched
}

// allocateCharacterTimestamps pairs the i-th matched recognized word
// with targetText's i-th untouched word, recording the recognized
// word's start as an offset from the line's timestamp lineTimeS. The
// result is word-level; ExportEnhancedLRC spreads each word's
// characters uniformly up to the next word's start.
func allocateCharacterTimestamps(targetText string, lineTimeS float64, matched []RecognizedWord) []WordTimestamp {
	targetWords := strings.Fields(targetText)
	if len(matched) == 0 || len(targetWords) == 0 {
		return nil
	}

	n := len(matched)
	if len(targetWords) < n {
		n = len(targetWords)
	}

	out := make([]WordTimestamp, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, WordTimestamp{OffsetS: matched[i].StartS - lineTimeS, Word: targetWords[i]})
	}
	return out
}
