package ollama

import (
	"context"
	"strings"
)

// Expander widens a query with synonym variants for lexical scoring.
// The dense query is never expanded.
type Expander struct {
	client *Client
}

func NewExpander(client *Client) *Expander {
	return &Expander{client: client}
}

func (e *Expander) Expand(ctx context.Context, query string, maxExpansionsPerTerm int) (string, error) {
	raw, err := e.client.generateText(ctx, buildExpandPrompt(query, maxExpansionsPerTerm))
	if err != nil {
		return "", err
	}

	// Models occasionally wrap the terms in extra lines or spacing.
	expanded := strings.Join(strings.Fields(raw), " ")
	if expanded == "" {
		return query, nil
	}
	return expanded, nil
}
