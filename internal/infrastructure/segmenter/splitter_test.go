package segmenter

import (
	"math"
	"strings"
	"testing"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

func TestSplitAssignsSectionTitlesFromHeadings(t *testing.T) {
	s := NewSplitter(900, 0)

	segments := s.Split("# Intro\nalpha beta\n\n## Methods\ngamma delta epsilon")

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].SectionTitle != "Intro" || segments[0].Text != "alpha beta" {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].SectionTitle != "Methods" || segments[1].Text != "gamma delta epsilon" {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Fatalf("expected index %d, got %d", i, seg.Index)
		}
		if seg.Kind != domain.SegmentKindSection {
			t.Fatalf("expected section kind, got %q", seg.Kind)
		}
	}
}

func TestSplitWindowsLongSectionsWithOverlap(t *testing.T) {
	s := NewSplitter(10, 3)

	segments := s.Split("abcdefghijklmnopqrstuvwxy")

	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}
	if segments[0].Text != "abcdefghij" {
		t.Fatalf("unexpected first window: %q", segments[0].Text)
	}
	if !strings.HasPrefix(segments[1].Text, "hij") {
		t.Fatalf("expected second window to repeat the overlap, got %q", segments[1].Text)
	}
	if segments[3].Text != "vwxy" {
		t.Fatalf("unexpected final window: %q", segments[3].Text)
	}
}

func TestSplitTextWithoutHeadingsKeepsEmptyTitle(t *testing.T) {
	s := NewSplitter(900, 0)

	segments := s.Split("plain paragraph without any structure")

	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].SectionTitle != "" {
		t.Fatalf("expected empty title, got %q", segments[0].SectionTitle)
	}
}

func TestSplitEmptyTextReturnsNil(t *testing.T) {
	s := NewSplitter(900, 150)

	if segments := s.Split("   \n\n  "); segments != nil {
		t.Fatalf("expected nil, got %v", segments)
	}
}

func TestSalienceRewardsHeadings(t *testing.T) {
	s := NewSplitter(900, 0)

	titled := s.Split("# Revenue\nalpha beta gamma")
	bare := s.Split("alpha beta gamma")

	diff := titled[0].Salience - bare[0].Salience
	if math.Abs(diff-0.2) > 1e-9 {
		t.Fatalf("expected heading bonus of 0.2, got %v", diff)
	}
}

func TestSalienceFavorsEarlierAndDiverseSegments(t *testing.T) {
	s := NewSplitter(10, 0)

	segments := s.Split("abcdefghijklmnopqrstuvwxyzabcdef")
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	first, last := segments[0], segments[len(segments)-1]
	if first.Salience <= last.Salience {
		t.Fatalf("expected earlier segment to rank higher: first %v, last %v", first.Salience, last.Salience)
	}

	varied := s.Split("alpha beta")
	repeated := s.Split("spam spam")
	if varied[0].Salience <= repeated[0].Salience {
		t.Fatalf("expected diverse text to rank higher: varied %v, repeated %v", varied[0].Salience, repeated[0].Salience)
	}

	for _, seg := range segments {
		if seg.Salience < 0 || seg.Salience > 1 {
			t.Fatalf("salience out of range: %v", seg.Salience)
		}
	}
}
