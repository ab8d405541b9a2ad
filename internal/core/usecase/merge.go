package usecase

import "github.com/olegbakhtin/document-qa-service/internal/core/domain"

// mergeSegments deduplicates candidates accumulated across sub-queries.
// The first appearance of an ID fixes its position and payload; a later
// duplicate only contributes its dense score when it beats the one kept.
func mergeSegments(batches [][]domain.RetrievedSegment) []domain.RetrievedSegment {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	merged := make([]domain.RetrievedSegment, 0, total)
	seen := make(map[string]int, total)

	for _, batch := range batches {
		for _, seg := range batch {
			at, ok := seen[seg.ID]
			if !ok {
				seen[seg.ID] = len(merged)
				merged = append(merged, seg)
				continue
			}
			if seg.DenseScore > merged[at].DenseScore {
				merged[at].DenseScore = seg.DenseScore
			}
		}
	}
	return merged
}
