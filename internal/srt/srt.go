// Package srt parses and re-serializes SubRip (SRT) subtitle documents.
//
// Parsing is strict: every block must carry an index line, a timing line, and
// at least one text line, and timestamps must be well-formed and ordered.
// Serialization renumbers cues 1..N but otherwise reproduces the parsed
// timestamps and text exactly, so parse→serialize round-trips are stable.
package srt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkt0401/kanasub/internal/errors"
)

// Cue is one timed subtitle entry.
type Cue struct {
	// Index is the sequence number as it appeared in the input.
	// Serialize ignores it and renumbers from 1.
	Index int

	// Start and End delimit the display window. Always Start < End.
	Start time.Duration
	End   time.Duration

	// Lines are the display text lines, without trailing newline.
	Lines []string
}

// Text returns the cue text with line breaks joined by "\n".
func (c *Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// SetText replaces the cue text, splitting on "\n" into display lines.
func (c *Cue) SetText(text string) {
	c.Lines = strings.Split(text, "\n")
}

// Document is an ordered sequence of cues.
type Document struct {
	Cues []*Cue
}

// FullContext concatenates all cue texts with spaces, truncated to max runes.
// Used to give the rewrite backend document-level context.
func (d *Document) FullContext(max int) string {
	parts := make([]string, 0, len(d.Cues))
	for _, c := range d.Cues {
		if t := strings.TrimSpace(c.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	full := strings.Join(parts, " ")
	runes := []rune(full)
	if max > 0 && len(runes) > max {
		return string(runes[:max])
	}
	return full
}

// Parse parses a raw SRT document.
// Returns a FORMAT_ERROR if any block is missing a required line or carries a
// malformed or non-monotonic time range.
func Parse(raw string) (*Document, error) {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	blocks := splitBlocks(normalized)

	cues := make([]*Cue, 0, len(blocks))
	for i, lines := range blocks {
		cue, err := parseBlock(i, lines)
		if err != nil {
			return nil, err
		}
		cues = append(cues, cue)
	}

	return &Document{Cues: cues}, nil
}

// splitBlocks splits on blank lines and drops empty blocks.
func splitBlocks(s string) [][]string {
	parts := strings.Split(strings.TrimSpace(s), "\n\n")
	out := make([][]string, 0, len(parts))
	for _, p := range parts {
		lines := strings.Split(p, "\n")
		trimmed := make([]string, 0, len(lines))
		for _, l := range lines {
			trimmed = append(trimmed, strings.TrimRight(l, " \t"))
		}
		for len(trimmed) > 0 && strings.TrimSpace(trimmed[0]) == "" {
			trimmed = trimmed[1:]
		}
		for len(trimmed) > 0 && strings.TrimSpace(trimmed[len(trimmed)-1]) == "" {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if len(trimmed) > 0 {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBlock(block int, lines []string) (*Cue, error) {
	if len(lines) < 3 {
		return nil, errors.NewFormat(block, "expected index, timing, and text lines")
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || index < 1 {
		return nil, errors.NewFormat(block, fmt.Sprintf("invalid index line %q", lines[0]))
	}

	start, end, err := parseTimingLine(lines[1])
	if err != nil {
		return nil, errors.NewFormat(block, err.Error())
	}
	if start >= end {
		return nil, errors.NewFormat(block, fmt.Sprintf("non-monotonic time range %q", lines[1]))
	}

	return &Cue{
		Index: index,
		Start: start,
		End:   end,
		Lines: append([]string{}, lines[2:]...),
	}, nil
}

func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("start time: %v", err)
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("end time: %v", err)
	}
	return start, end, nil
}

// parseTimestamp parses "HH:MM:SS,mmm".
func parseTimestamp(s string) (time.Duration, error) {
	hmsMillis := strings.Split(s, ",")
	if len(hmsMillis) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	hms := strings.Split(hmsMillis[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	var fields [4]int
	for i, part := range []string{hms[0], hms[1], hms[2], hmsMillis[1]} {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 || fields[3] > 999 {
		return 0, fmt.Errorf("timestamp field out of range in %q", s)
	}
	return time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second +
		time.Duration(fields[3])*time.Millisecond, nil
}

// FormatTimestamp renders a duration as "HH:MM:SS,mmm".
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Serialize renders the document back to SRT text, renumbering cues
// sequentially from 1. Timestamps and text lines are reproduced exactly.
func Serialize(doc *Document) string {
	var b strings.Builder
	for i, cue := range doc.Cues {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(FormatTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(cue.End))
		for _, line := range cue.Lines {
			b.WriteString("\n")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
