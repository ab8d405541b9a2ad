package domain

import "fmt"

// SegmentKindSection marks segments produced by the section splitter.
const SegmentKindSection = "s"

// Segment is one indexable slice of an extracted document.
type Segment struct {
	Index        int     `json:"index"`
	Kind         string  `json:"kind"`
	Text         string  `json:"text"`
	SectionTitle string  `json:"section_title,omitempty"`
	Salience     float64 `json:"salience"`
}

// CompositeID builds the index-wide segment key. SourceDocumentID
// relies on the kind and index being the trailing two components.
func (s Segment) CompositeID(docID string) string {
	kind := s.Kind
	if kind == "" {
		kind = SegmentKindSection
	}
	return fmt.Sprintf("%s_%s_%d", docID, kind, s.Index)
}
