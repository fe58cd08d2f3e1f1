// Package srt reads and writes SubRip (.srt) transcripts.
package srt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

var (
	ErrEmpty     = errors.New("transcript has no cues")
	ErrMalformed = errors.New("malformed srt")
)

// Parse reads all cues, sequence numbers are ignored and blank lines separate cues.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	var cur *Cue
	var text []string
	line := 0
	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(text, "\n")
			cues = append(cues, *cur)
		}
		cur = nil
		text = text[:0]
	}

	for scanner.Scan() {
		line++
		l := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		if l == "" {
			flush()
			continue
		}

		if cur == nil {
			if strings.Contains(l, "-->") {
				start, end, err := parseTiming(l)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				cur = &Cue{Start: start, End: end}
				continue
			}

			if _, err := strconv.Atoi(l); err != nil {
				return nil, fmt.Errorf("line %d: expected sequence number, got %q: %w", line, l, ErrMalformed)
			}
			continue
		}

		text = append(text, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading srt: %w", err)
	}
	flush()

	if len(cues) == 0 {
		return nil, ErrEmpty
	}

	return cues, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	// Position info may follow the end timestamp.
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp: %w", ErrMalformed)
	}
	end, err := parseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}

	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %w", ErrMalformed)
	}

	return start, end, nil
}

// parseTimestamp parses HH:MM:SS,mmm, a '.' is accepted as the millisecond separator as well.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.Replace(value, ".", ",", 1)
	var h, m, s, ms int
	if _, err := fmt.Sscanf(value, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", value, ErrMalformed)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func formatTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

// Format writes the cues, numbering them from 1.
func Format(cues []Cue) string {
	b := strings.Builder{}
	for i, c := range cues {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(formatTimestamp(c.Start))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(c.End))
		b.WriteByte('\n')
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Text joins the text of every cue with spaces.
func Text(cues []Cue) string {
	parts := make([]string, len(cues))
	for i, c := range cues {
		parts[i] = strings.ReplaceAll(c.Text, "\n", " ")
	}
	return strings.Join(parts, " ")
}
