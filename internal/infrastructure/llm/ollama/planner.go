package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

const defaultPlannerSubQueries = 5

// Planner asks the generation model, in JSON mode, to decompose one
// user question into a retrieval plan. A malformed response gets one
// repair round-trip before the request fails.
type Planner struct {
	client        *Client
	maxSubQueries int
}

func NewPlanner(client *Client, maxSubQueries int) *Planner {
	if maxSubQueries <= 0 {
		maxSubQueries = defaultPlannerSubQueries
	}
	return &Planner{client: client, maxSubQueries: maxSubQueries}
}

func (p *Planner) Decompose(ctx context.Context, query, schemaContext string, opts domain.PlanOptions) (*domain.QueryPlan, error) {
	raw, err := p.client.generateJSON(ctx, buildPlanPrompt(query, schemaContext, p.maxSubQueries, opts))
	if err != nil {
		return nil, err
	}

	plan, parseErr := parseQueryPlan(raw)
	if parseErr == nil {
		return plan, nil
	}

	slog.Warn("plan_repair_attempt", "error", parseErr)
	repaired, err := p.client.generateJSON(ctx, buildPlanRepairPrompt(raw))
	if err != nil {
		return nil, err
	}
	plan, parseErr = parseQueryPlan(repaired)
	if parseErr != nil {
		return nil, fmt.Errorf("parse plan json: %w", parseErr)
	}
	return plan, nil
}

type planPayload struct {
	SubQueries []struct {
		Text     string `json:"text"`
		Purpose  string `json:"purpose"`
		Priority int    `json:"priority"`
		TopK     int    `json:"top_k"`
	} `json:"sub_queries"`
	Confidence            float64 `json:"confidence"`
	Mode                  string  `json:"mode"`
	QueryType             string  `json:"query_type"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question"`
}

func parseQueryPlan(raw string) (*domain.QueryPlan, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty planner response")
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal plan json: %w", err)
	}

	plan := &domain.QueryPlan{
		Confidence:            clampUnit(payload.Confidence),
		Mode:                  parsePlanMode(payload.Mode),
		QueryType:             parseQueryType(payload.QueryType),
		NeedsClarification:    payload.NeedsClarification,
		ClarificationQuestion: strings.TrimSpace(payload.ClarificationQuestion),
	}
	for _, sq := range payload.SubQueries {
		text := strings.TrimSpace(sq.Text)
		if text == "" {
			continue
		}
		plan.SubQueries = append(plan.SubQueries, domain.SubQuery{
			Text:     text,
			Purpose:  strings.TrimSpace(sq.Purpose),
			Priority: sq.Priority,
			TopK:     sq.TopK,
		})
	}
	return plan, nil
}

func parsePlanMode(raw string) domain.PlanMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "traditional":
		return domain.PlanModeTraditional
	default:
		return domain.PlanModeHybrid
	}
}

func parseQueryType(raw string) domain.QueryType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "keyword":
		return domain.QueryTypeKeyword
	case "navigation":
		return domain.QueryTypeNavigation
	case "comparison":
		return domain.QueryTypeComparison
	case "aggregation":
		return domain.QueryTypeAggregation
	default:
		return domain.QueryTypeSemantic
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
