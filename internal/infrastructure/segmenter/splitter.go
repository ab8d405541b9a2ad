package segmenter

import (
	"strings"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type Splitter struct {
	segmentSize int
	overlap     int
}

func NewSplitter(segmentSize, overlap int) *Splitter {
	if segmentSize <= 0 {
		segmentSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= segmentSize {
		overlap = segmentSize / 4
	}
	return &Splitter{
		segmentSize: segmentSize,
		overlap:     overlap,
	}
}

// Split breaks text into markdown-aware sections, windows each section
// by runes with overlap, and scores every segment for salience.
func (s *Splitter) Split(text string) []domain.Segment {
	type piece struct {
		title string
		text  string
	}

	var pieces []piece
	for _, sec := range splitSections(text) {
		for _, window := range windows(sec.body, s.segmentSize, s.overlap) {
			pieces = append(pieces, piece{title: sec.title, text: window})
		}
	}
	if len(pieces) == 0 {
		return nil
	}

	out := make([]domain.Segment, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, domain.Segment{
			Index:        i,
			Kind:         domain.SegmentKindSection,
			Text:         p.text,
			SectionTitle: p.title,
			Salience:     salience(p.text, p.title, i, len(pieces)),
		})
	}
	return out
}

type section struct {
	title string
	body  string
}

func splitSections(text string) []section {
	var (
		out   []section
		title string
		body  []string
	)
	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		if joined != "" {
			out = append(out, section{title: title, body: joined})
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		body = append(body, line)
	}
	flush()
	return out
}

func windows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// salience blends term diversity, document position, and the presence
// of a section heading into a 0..1 ranking signal.
func salience(text, title string, index, total int) float64 {
	position := 1.0
	if total > 1 {
		position = 1 - float64(index)/float64(total-1)
	}
	heading := 0.0
	if title != "" {
		heading = 1.0
	}
	return 0.4*tokenDiversity(text) + 0.4*position + 0.2*heading
}

func tokenDiversity(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		unique[f] = struct{}{}
	}
	return float64(len(unique)) / float64(len(fields))
}
