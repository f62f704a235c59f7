package lyrics

import (
	"fmt"
	"strings"
)

// ExportEnhancedLRC renders aligned lyrics back out as enhanced LRC
// text, with a <mm:ss.xx> timestamp per character, per spec §4.7's
// exporter bullet.
func ExportEnhancedLRC(aligned AlignedLyrics) string {
	var b strings.Builder
	for _, line := range aligned.Lines {
		b.WriteString(formatLineTimestamp(line.TimeS))
		b.WriteString(renderCharacterTimestamps(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCharacterTimestamps(line AlignedLine) string {
	if len(line.Words) == 0 {
		return line.Text
	}

	var b strings.Builder
	charsPerWord := splitRetainingSpacing(line.Text, len(line.Words))
	for i, word := range line.Words {
		if i >= len(charsPerWord) {
			break
		}
		chars := charsPerWord[i]
		if len(chars) == 0 {
			continue
		}
		perCharDuration := nextWordOffset(line, i) - word.OffsetS
		if perCharDuration < 0 {
			perCharDuration = 0
		}
		step := perCharDuration / float64(len(chars))
		for c, ch := range chars {
			t := line.TimeS + word.OffsetS + step*float64(c)
			b.WriteString(formatTimestamp(t))
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func nextWordOffset(line AlignedLine, idx int) float64 {
	if idx+1 < len(line.Words) {
		return line.Words[idx+1].OffsetS
	}
	return line.Words[idx].OffsetS + 0.5
}

// splitRetainingSpacing returns the runes of text's first n
// whitespace-separated words, one group per word; the spaces between
// words are not included.
func splitRetainingSpacing(text string, n int) [][]rune {
	fields := strings.Fields(text)
	if len(fields) == 0 || n == 0 {
		return nil
	}
	out := make([][]rune, 0, n)
	for i := 0; i < n && i < len(fields); i++ {
		out = append(out, []rune(fields[i]))
	}
	return out
}

func formatTimestamp(t float64) string {
	minutes, seconds := splitMinutesSeconds(t)
	return fmt.Sprintf("<%02d:%05.2f>", minutes, seconds)
}

func formatLineTimestamp(t float64) string {
	minutes, seconds := splitMinutesSeconds(t)
	return fmt.Sprintf("[%02d:%05.2f]", minutes, seconds)
}

func splitMinutesSeconds(t float64) (int, float64) {
	if t < 0 {
		t = 0
	}
	minutes := int(t) / 60
	seconds := t - float64(minutes*60)
	return minutes, seconds
}
