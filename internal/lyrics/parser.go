package lyrics

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
)

var (
	timestampRe = regexp.MustCompile(`\[(\d{1,3}):(\d{2})(?:\.(\d{1,3}))?\]`)
	wordTimeRe  = regexp.MustCompile(`<(\d{1,3}):(\d{2})(?:\.(\d{1,3}))?>`)
	headerRe    = regexp.MustCompile(`^\[(ti|ar|al|re|ve|offset):(.*)\]$`)
)

// ParseLRC tokenizes LRC content line by line, per spec §4.7's Parser
// bullet: [mm:ss.xx]/[mm:ss.xxx] timestamps, multi-timestamp lines,
// enhanced <mm:ss.xx>word timestamps, [offset:ms], and header tags.
// Output lines are sorted by time.
func ParseLRC(content string) (*Lyrics, error) {
	lrc := &Lyrics{}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		if m := headerRe.FindStringSubmatch(raw); m != nil {
			applyHeader(lrc, m[1], strings.TrimSpace(m[2]))
			continue
		}

		timestamps := timestampRe.FindAllStringSubmatchIndex(raw, -1)
		if len(timestamps) == 0 {
			continue
		}

		lastEnd := timestamps[len(timestamps)-1][1]
		body := raw[lastEnd:]

		for _, idx := range timestamps {
			timeS, err := parseTimestamp(raw[idx[0]:idx[1]])
			if err != nil {
				return nil, streamerrors.New(err).
					Component("lyrics").
					Category(streamerrors.CategoryInvalidParameter).
					Context("line", raw).
					Build()
			}
			line := parseBody(timeS, body)
			lrc.Lines = append(lrc.Lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, streamerrors.New(err).Component("lyrics").Category(streamerrors.CategoryInvalidParameter).Build()
	}

	sort.Slice(lrc.Lines, func(i, j int) bool { return lrc.Lines[i].TimeS < lrc.Lines[j].TimeS })
	return lrc, nil
}

func applyHeader(lrc *Lyrics, tag, value string) {
	switch tag {
	case "ti":
		lrc.Title = value
	case "ar":
		lrc.Artist = value
	case "al":
		lrc.Album = value
	case "re":
		lrc.ReleaseTag = value
	case "ve":
		lrc.Version = value
	case "offset":
		if ms, err := strconv.Atoi(strings.TrimPrefix(value, "+")); err == nil {
			lrc.OffsetMS = ms
		}
	}
}

func parseTimestamp(tag string) (float64, error) {
	m := timestampRe.FindStringSubmatch(tag)
	if m == nil {
		return 0, streamerrors.Newf("lyrics: malformed timestamp %q", tag).Build()
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, err
	}
	frac := 0.0
	if m[3] != "" {
		fracVal, err := strconv.Atoi(m[3])
		if err != nil {
			return 0, err
		}
		frac = float64(fracVal) / pow10(len(m[3]))
	}
	return float64(minutes)*60 + float64(seconds) + frac, nil
}

func pow10(digits int) float64 {
	switch digits {
	case 1:
		return 10
	case 2:
		return 100
	default:
		return 1000
	}
}

// parseBody extracts enhanced word-level timestamps from an LRC line
// body, if present, and returns the line's plain text regardless.
func parseBody(lineTimeS float64, body string) Line {
	matches := wordTimeRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return Line{TimeS: lineTimeS, Text: strings.TrimSpace(body)}
	}

	var words []WordTimestamp
	var plain strings.Builder
	cursor := 0
	for i, idx := range matches {
		plain.WriteString(body[cursor:idx[0]])

		wordStart := idx[1]
		wordEnd := len(body)
		if i+1 < len(matches) {
			wordEnd = matches[i+1][0]
		}
		word := strings.TrimSpace(body[wordStart:wordEnd])
		if word != "" && plain.Len() > 0 && !strings.HasSuffix(plain.String(), " ") {
			plain.WriteString(" ")
		}
		plain.WriteString(word)

		wordTimeS, err := parseTimestamp(body[idx[0]:idx[1]])
		if err == nil {
			words = append(words, WordTimestamp{OffsetS: wordTimeS - lineTimeS, Word: word})
		}
		cursor = wordEnd
	}

	return Line{TimeS: lineTimeS, Text: strings.TrimSpace(plain.String()), Words: words}
}
