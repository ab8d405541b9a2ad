package usecase

import (
	"strings"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

const (
	lowConfidenceThreshold = 0.4

	clarificationFallback = "Could you clarify what you are looking for?"
	rephraseFallback      = "I could not find enough relevant material to answer confidently. Could you try rephrasing your question?"
	offTopicFallback      = "That question appears to be outside the scope of the indexed documents."
)

// flowConfig controls the off-topic gate of the flow decision.
type flowConfig struct {
	demoMode          bool
	minRelevanceScore float64
	offTopicMessage   string
}

// flowDecision is the terminal state for one request plus the text the
// non-synthesis states answer with.
type flowDecision struct {
	action  domain.FlowAction
	message string
}

// decideFlow picks the terminal state for one request. First matching
// rule wins; the clarification rule runs before the low-confidence one
// so planner-specific wording survives a zero-confidence plan.
func decideFlow(plan *domain.QueryPlan, results []rankedCandidate, cfg flowConfig) flowDecision {
	if plan.NeedsClarification {
		message := strings.TrimSpace(plan.ClarificationQuestion)
		if message == "" {
			message = clarificationFallback
		}
		return flowDecision{action: domain.FlowAskClarification, message: message}
	}
	if len(results) == 0 || plan.Confidence < lowConfidenceThreshold {
		return flowDecision{action: domain.FlowAskClarification, message: rephraseFallback}
	}
	if cfg.demoMode && !anyScoreAtLeast(results, cfg.minRelevanceScore) {
		message := strings.TrimSpace(cfg.offTopicMessage)
		if message == "" {
			message = offTopicFallback
		}
		return flowDecision{action: domain.FlowOffTopic, message: message}
	}
	if plan.QueryType == domain.QueryTypeKeyword || plan.QueryType == domain.QueryTypeNavigation {
		return flowDecision{action: domain.FlowListSources}
	}
	return flowDecision{action: domain.FlowSynthesize}
}

func anyScoreAtLeast(results []rankedCandidate, threshold float64) bool {
	for _, c := range results {
		if c.segment.DenseScore >= threshold {
			return true
		}
	}
	return false
}
