package usecase

import (
	"math"
	"testing"
)

func TestLexicalScorerPrefersMatchingDocument(t *testing.T) {
	scorer := newLexicalScorer([]string{
		"the quarterly revenue grew by ten percent",
		"employees may request remote work equipment",
		"revenue recognition follows the accrual principle",
	}, 0, 0)

	scores := scorer.ScoreAll("revenue growth")
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0] <= scores[1] {
		t.Fatalf("expected matching doc to outscore unrelated doc: %v vs %v", scores[0], scores[1])
	}
	if scores[1] != 0 {
		t.Fatalf("expected 0 for document without query terms, got %v", scores[1])
	}
	if scores[2] <= 0 {
		t.Fatalf("expected positive score for partial match, got %v", scores[2])
	}
}

func TestLexicalScorerMatchesReferenceFormula(t *testing.T) {
	// Two single-term documents, query hits only the first one.
	scorer := newLexicalScorer([]string{"apple", "banana"}, 1.2, 0.75)

	scores := scorer.ScoreAll("apple")
	// N=2, n=1, f=1, |d|=avgdl=1: idf=ln(1+1.5/1.5)=ln 2, tf term = 2.2/2.2 = 1.
	want := math.Log(2)
	if math.Abs(scores[0]-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, scores[0])
	}
	if scores[1] != 0 {
		t.Fatalf("expected 0 for non-matching doc, got %v", scores[1])
	}
}

func TestLexicalScorerAbsentTermsNeverNegative(t *testing.T) {
	scorer := newLexicalScorer([]string{"short text", "longer text with more words inside"}, 0, 0)

	scores := scorer.ScoreAll("completely unrelated query tokens")
	for i, score := range scores {
		if score != 0 {
			t.Fatalf("expected 0 for absent terms at %d, got %v", i, score)
		}
	}
}

func TestLexicalScorerZeroCandidates(t *testing.T) {
	scorer := newLexicalScorer(nil, 0, 0)
	if scores := scorer.ScoreAll("anything"); len(scores) != 0 {
		t.Fatalf("expected no scores, got %v", scores)
	}
}

func TestLexicalScorerCaseInsensitive(t *testing.T) {
	scorer := newLexicalScorer([]string{"The Quick BROWN Fox"}, 0, 0)

	upper := scorer.ScoreAll("QUICK fox")
	lower := scorer.ScoreAll("quick FOX")
	if upper[0] != lower[0] {
		t.Fatalf("expected case-insensitive scoring, got %v vs %v", upper[0], lower[0])
	}
	if upper[0] <= 0 {
		t.Fatalf("expected positive score, got %v", upper[0])
	}
}

func TestLexicalScorerRepeatedQueryTermCountsOnce(t *testing.T) {
	scorer := newLexicalScorer([]string{"alpha beta"}, 0, 0)

	single := scorer.ScoreAll("alpha")
	repeated := scorer.ScoreAll("alpha alpha alpha")
	if single[0] != repeated[0] {
		t.Fatalf("expected repeated query terms to score once, got %v vs %v", single[0], repeated[0])
	}
}

func TestSplitWordsLowerTokenization(t *testing.T) {
	tokens := splitWordsLower("Q3-2025 report: Revenue, net_income!")
	want := []string{"q3", "2025", "report", "revenue", "net", "income"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("expected token %q at %d, got %q", token, i, tokens[i])
		}
	}
}
