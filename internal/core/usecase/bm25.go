package usecase

import (
	"math"
	"strings"
	"unicode"
)

const (
	defaultBM25K1 = 1.2
	defaultBM25B  = 0.75
)

// lexicalScorer ranks candidates with BM25 over the candidate set
// itself. The corpus lives for one request; nothing is persisted.
type lexicalScorer struct {
	k1    float64
	b     float64
	freqs []map[string]int
	df    map[string]int
	lens  []int
	avgdl float64
}

func newLexicalScorer(texts []string, k1, b float64) *lexicalScorer {
	if k1 <= 0 {
		k1 = defaultBM25K1
	}
	if b <= 0 {
		b = defaultBM25B
	}

	s := &lexicalScorer{
		k1:    k1,
		b:     b,
		freqs: make([]map[string]int, len(texts)),
		df:    make(map[string]int, 64),
		lens:  make([]int, len(texts)),
	}

	totalLen := 0
	for i, text := range texts {
		tokens := splitWordsLower(text)
		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		for token := range freq {
			s.df[token]++
		}
		s.freqs[i] = freq
		s.lens[i] = len(tokens)
		totalLen += len(tokens)
	}
	if len(texts) > 0 {
		s.avgdl = float64(totalLen) / float64(len(texts))
	}
	return s
}

// ScoreAll scores every candidate against the query. Terms absent from
// the corpus contribute nothing; an empty corpus scores everything 0.
func (s *lexicalScorer) ScoreAll(query string) []float64 {
	scores := make([]float64, len(s.freqs))
	if len(s.freqs) == 0 {
		return scores
	}

	terms := uniqueTokens(splitWordsLower(query))
	n := float64(len(s.freqs))

	for _, term := range terms {
		docFreq := float64(s.df[term])
		if docFreq == 0 {
			continue
		}
		idf := math.Log(1 + (n-docFreq+0.5)/(docFreq+0.5))
		for i, freq := range s.freqs {
			f := float64(freq[term])
			if f == 0 {
				continue
			}
			norm := 1 - s.b + s.b*float64(s.lens[i])/s.avgdl
			scores[i] += idf * f * (s.k1 + 1) / (f + s.k1*norm)
		}
	}
	return scores
}

func uniqueTokens(tokens []string) []string {
	out := tokens[:0]
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func splitWordsLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
