// Package align turns forced-aligner output into the recording-wide aligned
// word sequence the splice engine consumes.
//
// The aligner itself (Montreal Forced Aligner) stays a black box: it is
// invoked per recording over a prepared corpus of audio/transcript chunk
// pairs and answers with one Praat TextGrid file per chunk. This package
// parses those TextGrids, shifts chunk-local times by each chunk's offset,
// groups phone intervals under their word, and maps every aligned word back
// onto its canonical ID.
package align

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Interval is one labeled time span from a TextGrid tier.
type Interval struct {
	Min  float64
	Max  float64
	Mark string
}

// Tier is a named interval tier.
type Tier struct {
	Name      string
	Intervals []Interval
}

// TextGrid is a parsed Praat TextGrid annotation file.
type TextGrid struct {
	Tiers []Tier
}

// Tier returns the first tier with the given name.
func (tg *TextGrid) Tier(name string) (*Tier, bool) {
	for i := range tg.Tiers {
		if tg.Tiers[i].Name == name {
			return &tg.Tiers[i], true
		}
	}
	return nil, false
}

// ParseTextGrid reads a long-form TextGrid. The parser is line-oriented and
// deliberately lax: it keys on "name", "xmin", "xmax", and "text"
// assignments and ignores everything else, which copes with the minor
// format variations different aligner versions emit.
func ParseTextGrid(r io.Reader) (*TextGrid, error) {
	var (
		tg       TextGrid
		current  *Tier
		interval *Interval
	)

	flush := func() {
		if current != nil && interval != nil {
			current.Intervals = append(current.Intervals, *interval)
			interval = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		key, value, ok := splitAssignment(line)
		if !ok {
			if strings.HasPrefix(line, "item [") && !strings.HasPrefix(line, "item []") {
				// New tier header. Finish the previous tier first.
				flush()
				tg.Tiers = append(tg.Tiers, Tier{})
				current = &tg.Tiers[len(tg.Tiers)-1]
			} else if strings.HasPrefix(line, "intervals [") {
				flush()
				interval = &Interval{}
			}
			continue
		}

		switch key {
		case "name":
			if current != nil {
				current.Name = unquote(value)
			}
		case "xmin", "xmax":
			if interval == nil {
				continue // file- or tier-level bound
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("align: textgrid line %d: bad %s %q: %w", lineNo, key, value, err)
			}
			if key == "xmin" {
				interval.Min = f
			} else {
				interval.Max = f
			}
		case "text":
			if interval != nil {
				interval.Mark = unquote(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("align: read textgrid: %w", err)
	}
	flush()

	return &tg, nil
}

// splitAssignment splits a `key = value` line.
func splitAssignment(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// unquote strips surrounding double quotes and unescapes Praat's doubled
// quote convention.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `""`, `"`)
}
