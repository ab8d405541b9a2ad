package domain

import "testing"

func TestSourceDocumentIDStripsKindAndIndex(t *testing.T) {
	if got := SourceDocumentID("doc-1_s_0"); got != "doc-1" {
		t.Fatalf("expected doc-1, got %q", got)
	}
}

func TestSourceDocumentIDKeepsUnderscoresInsideDocID(t *testing.T) {
	if got := SourceDocumentID("10_da69a3ca5838716d_s_42"); got != "10_da69a3ca5838716d" {
		t.Fatalf("expected 10_da69a3ca5838716d, got %q", got)
	}
}

func TestSourceDocumentIDRejectsShortIDs(t *testing.T) {
	if got := SourceDocumentID("s_42"); got != "" {
		t.Fatalf("expected empty doc id, got %q", got)
	}
	if got := SourceDocumentID("plain"); got != "" {
		t.Fatalf("expected empty doc id, got %q", got)
	}
}

func TestCompositeIDRoundTripsThroughSourceDocumentID(t *testing.T) {
	seg := Segment{Index: 7, Kind: SegmentKindSection}
	id := seg.CompositeID("4f8a_112b")
	if id != "4f8a_112b_s_7" {
		t.Fatalf("expected 4f8a_112b_s_7, got %q", id)
	}
	if got := SourceDocumentID(id); got != "4f8a_112b" {
		t.Fatalf("expected 4f8a_112b, got %q", got)
	}
}

func TestHashEvidenceIsStable(t *testing.T) {
	a := HashEvidence("first\n---\nsecond")
	b := HashEvidence("first\n---\nsecond")
	if a != b {
		t.Fatalf("expected identical hashes, got %q vs %q", a, b)
	}
	if a == HashEvidence("first\n---\nthird") {
		t.Fatalf("expected different evidence to hash differently")
	}
}
