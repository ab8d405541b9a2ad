package ollama

import (
	"fmt"
	"strings"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

func buildPlanPrompt(query, schemaContext string, maxSubQueries int, opts domain.PlanOptions) string {
	conversation := strings.TrimSpace(schemaContext)
	if conversation == "" {
		conversation = "(empty)"
	}

	rules := []string{
		fmt.Sprintf("Produce at most %d sub_queries, each answerable by a single search.", maxSubQueries),
		"Lower priority values run first.",
		`Set mode to "traditional" when one direct query suffices, "hybrid" when the question has independent parts.`,
		`Set query_type to "keyword" for exact term lookups, "navigation" when the user wants to locate a document, "comparison" or "aggregation" when the answer spans several facts, "semantic" otherwise.`,
		"Set needs_clarification to true only when the question cannot be executed as written, and fill clarification_question.",
		"confidence is your estimate from 0 to 1 that this plan retrieves what the user needs.",
	}
	if opts.ValidateAssumptions {
		rules = append(rules, "Check assumptions stated in the question and lower confidence when they look wrong.")
	}
	if hint := strings.TrimSpace(opts.ModeHint); hint != "" {
		rules = append(rules, fmt.Sprintf("The caller prefers %q retrieval when reasonable.", hint))
	}

	return fmt.Sprintf(`You are the retrieval planner of a document question answering backend.
Return ONLY a valid JSON object with this schema:
{"sub_queries":[{"text":"...","purpose":"...","priority":1,"top_k":5}],"confidence":0.0,"mode":"traditional|hybrid","query_type":"semantic|keyword|navigation|comparison|aggregation","needs_clarification":false,"clarification_question":""}

Rules:
%s

Searchable scope: %s

Conversation so far:
%s

User question:
%s
`, strings.Join(rules, "\n"), describePlanScope(opts), conversation, query)
}

func buildPlanRepairPrompt(raw string) string {
	return fmt.Sprintf(`Convert the following text into a valid JSON object for this schema:
{"sub_queries":[{"text":"...","purpose":"...","priority":1,"top_k":5}],"confidence":0.0,"mode":"traditional|hybrid","query_type":"semantic|keyword|navigation|comparison|aggregation","needs_clarification":false,"clarification_question":""}
Return only JSON.
Text:
%s`, raw)
}

func buildExpandPrompt(query string, maxExpansionsPerTerm int) string {
	return fmt.Sprintf(`Expand the search query below for lexical matching.
Add up to %d synonyms or close variants per meaningful term.
Return one line: the original terms followed by the variants, separated by spaces.
No explanations.

Query:
%s`, maxExpansionsPerTerm, query)
}

func describePlanScope(opts domain.PlanOptions) string {
	switch {
	case len(opts.TargetDocumentIDs) > 0:
		return fmt.Sprintf("%d caller-selected document(s)", len(opts.TargetDocumentIDs))
	case strings.TrimSpace(opts.Collection) != "":
		return fmt.Sprintf("collection %q", opts.Collection)
	default:
		return "all indexed documents"
	}
}
