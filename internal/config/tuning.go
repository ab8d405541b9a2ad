package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

// Tuning is the optional retrieval tuning file. Fields left out of the
// file keep the pipeline defaults.
type Tuning struct {
	RRFK              int                   `yaml:"rrf_k"`
	KeywordWeights    *domain.FusionWeights `yaml:"keyword_weights"`
	HybridWeights     *domain.FusionWeights `yaml:"hybrid_weights"`
	BM25K1            float64               `yaml:"bm25_k1"`
	BM25B             float64               `yaml:"bm25_b"`
	MinRelevanceScore float64               `yaml:"min_relevance_score"`
}

// LoadTuning reads the tuning file at path. An empty path means no
// overrides and returns nil without error.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}

	var tuning Tuning
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return nil, fmt.Errorf("parse tuning file: %w", err)
	}
	return &tuning, nil
}
