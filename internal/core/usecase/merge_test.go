package usecase

import (
	"testing"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

func TestMergeSegmentsKeepsMaxDenseScorePerID(t *testing.T) {
	batches := [][]domain.RetrievedSegment{
		{
			{ID: "doc-1_s_0", Text: "alpha", DenseScore: 0.42},
			{ID: "doc-1_s_1", Text: "beta", DenseScore: 0.61},
		},
		{
			{ID: "doc-1_s_0", Text: "alpha", DenseScore: 0.77},
			{ID: "doc-2_s_0", Text: "gamma", DenseScore: 0.30},
		},
		{
			{ID: "doc-1_s_0", Text: "alpha", DenseScore: 0.05},
		},
	}

	merged := mergeSegments(batches)
	if len(merged) != 3 {
		t.Fatalf("expected 3 unique segments, got %d", len(merged))
	}
	if merged[0].ID != "doc-1_s_0" || merged[0].DenseScore != 0.77 {
		t.Fatalf("expected max score 0.77 for doc-1_s_0, got %+v", merged[0])
	}
	if merged[1].ID != "doc-1_s_1" || merged[2].ID != "doc-2_s_0" {
		t.Fatalf("expected first-seen order preserved, got %+v", merged)
	}
}

func TestMergeSegmentsKeepsFirstSeenPayload(t *testing.T) {
	batches := [][]domain.RetrievedSegment{
		{{ID: "doc-1_s_0", Text: "original", Salience: 0.9, DenseScore: 0.2}},
		{{ID: "doc-1_s_0", Text: "other copy", Salience: 0.1, DenseScore: 0.8}},
	}

	merged := mergeSegments(batches)
	if len(merged) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(merged))
	}
	if merged[0].Text != "original" || merged[0].Salience != 0.9 {
		t.Fatalf("expected first-seen payload to win, got %+v", merged[0])
	}
	if merged[0].DenseScore != 0.8 {
		t.Fatalf("expected dense score 0.8, got %v", merged[0].DenseScore)
	}
}

func TestMergeSegmentsEmptyInput(t *testing.T) {
	if got := mergeSegments(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %d entries", len(got))
	}
	if got := mergeSegments([][]domain.RetrievedSegment{nil, {}}); len(got) != 0 {
		t.Fatalf("expected empty output for empty batches, got %d entries", len(got))
	}
}
