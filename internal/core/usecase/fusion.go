package usecase

import (
	"sort"
	"time"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

const defaultRRFK = 60

// rankedCandidate annotates one merged segment with the signals that
// participate in fusion. createdAt belongs to the owning document; the
// zero value ranks as the oldest possible timestamp.
type rankedCandidate struct {
	segment   domain.RetrievedSegment
	bm25      float64
	createdAt time.Time
	fused     float64
}

// fuseRanked combines four independent rank orderings with reciprocal
// rank fusion. The signals arrive on incompatible scales, so ranks are
// fused instead of magnitudes; a weight of 0 skips that signal's sort
// entirely.
func fuseRanked(candidates []rankedCandidate, weights domain.FusionWeights, rrfK int) []rankedCandidate {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	if len(candidates) == 0 {
		return candidates
	}

	addSignal := func(weight float64, better func(a, b rankedCandidate) bool) {
		if weight <= 0 {
			return
		}
		order := make([]int, len(candidates))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return better(candidates[order[i]], candidates[order[j]])
		})
		for rank, idx := range order {
			candidates[idx].fused += weight / float64(rrfK+rank+1)
		}
	}

	addSignal(weights.Dense, func(a, b rankedCandidate) bool {
		return a.segment.DenseScore > b.segment.DenseScore
	})
	addSignal(weights.BM25, func(a, b rankedCandidate) bool {
		return a.bm25 > b.bm25
	})
	addSignal(weights.Salience, func(a, b rankedCandidate) bool {
		return a.segment.Salience > b.segment.Salience
	})
	addSignal(weights.Freshness, func(a, b rankedCandidate) bool {
		return a.createdAt.After(b.createdAt)
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].fused > candidates[j].fused
	})
	return candidates
}

// sortByDense orders candidates by dense similarity alone, the whole
// ranking for semantic mode.
func sortByDense(candidates []rankedCandidate) []rankedCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].segment.DenseScore > candidates[j].segment.DenseScore
	})
	return candidates
}

func trimCandidates(candidates []rankedCandidate, limit int) []rankedCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
