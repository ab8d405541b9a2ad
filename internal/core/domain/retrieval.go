package domain

import (
	"strings"
	"time"
)

// SearchMode selects which relevance signals participate in ranking.
type SearchMode string

const (
	SearchModeSemantic SearchMode = "semantic"
	SearchModeHybrid   SearchMode = "hybrid"
	SearchModeKeyword  SearchMode = "keyword"
)

// PlanMode is the retrieval strategy chosen by the planner.
type PlanMode string

const (
	PlanModeTraditional PlanMode = "traditional"
	PlanModeHybrid      PlanMode = "hybrid"
)

// QueryType classifies the user intent behind a query.
type QueryType string

const (
	QueryTypeSemantic    QueryType = "semantic"
	QueryTypeKeyword     QueryType = "keyword"
	QueryTypeNavigation  QueryType = "navigation"
	QueryTypeComparison  QueryType = "comparison"
	QueryTypeAggregation QueryType = "aggregation"
)

// SubQuery is one decomposed retrieval task. Lower Priority runs first.
type SubQuery struct {
	Text     string `json:"text"`
	Purpose  string `json:"purpose,omitempty"`
	Priority int    `json:"priority"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryPlan is produced once per request by the planner and never
// mutated afterwards.
type QueryPlan struct {
	SubQueries            []SubQuery `json:"sub_queries"`
	Confidence            float64    `json:"confidence"`
	Mode                  PlanMode   `json:"mode"`
	QueryType             QueryType  `json:"query_type"`
	NeedsClarification    bool       `json:"needs_clarification"`
	ClarificationQuestion string     `json:"clarification_question,omitempty"`
}

// PlanOptions narrows what the planner may target.
type PlanOptions struct {
	TargetDocumentIDs   []string
	Collection          string
	ModeHint            string
	ValidateAssumptions bool
}

// RetrievedSegment is one candidate passage pulled from the vector
// index. ID is a composite "{docID}_{kind}_{index}" key and is the
// dedup key within a single request.
type RetrievedSegment struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	DenseScore   float64 `json:"dense_score"`
	Salience     float64 `json:"salience"`
	SectionTitle string  `json:"section_title,omitempty"`
	SourceDocID  string  `json:"source_doc_id"`
}

// SourceDocumentID strips the trailing kind and index components from
// a composite segment ID. Document IDs may themselves contain
// underscores, so only the last two components are removed.
func SourceDocumentID(segmentID string) string {
	parts := strings.Split(segmentID, "_")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "_")
}

// SourceDocument carries document metadata resolved for ranking and
// citation building.
type SourceDocument struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// FusionWeights is the per-signal importance used by rank fusion.
type FusionWeights struct {
	Dense     float64 `json:"dense" yaml:"dense"`
	BM25      float64 `json:"bm25" yaml:"bm25"`
	Salience  float64 `json:"salience" yaml:"salience"`
	Freshness float64 `json:"freshness" yaml:"freshness"`
}

// DefaultKeywordWeights favor lexical overlap over dense similarity.
func DefaultKeywordWeights() FusionWeights {
	return FusionWeights{Dense: 0.3, BM25: 1.5, Salience: 0.2, Freshness: 0.1}
}

// DefaultHybridWeights balance dense and lexical signals.
func DefaultHybridWeights() FusionWeights {
	return FusionWeights{Dense: 1.0, BM25: 1.0, Salience: 0.3, Freshness: 0.2}
}
