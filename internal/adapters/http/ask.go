package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type askRequest struct {
	Question       string   `json:"question"`
	ConversationID string   `json:"conversation_id"`
	Collection     string   `json:"collection"`
	DocumentIDs    []string `json:"document_ids"`
	TopK           int      `json:"top_k"`
	ModeHint       string   `json:"mode_hint"`
}

func decodeAskRequest(r *http.Request) (domain.AskQuery, error) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.AskQuery{}, errors.New("invalid json")
	}
	if strings.TrimSpace(req.Question) == "" {
		return domain.AskQuery{}, errors.New("question is required")
	}

	modeHint := strings.ToLower(strings.TrimSpace(req.ModeHint))
	switch modeHint {
	case "", string(domain.SearchModeSemantic), string(domain.SearchModeHybrid), string(domain.SearchModeKeyword):
	default:
		return domain.AskQuery{}, errors.New("mode_hint must be one of semantic, hybrid, keyword")
	}

	return domain.AskQuery{
		Question:       req.Question,
		ConversationID: strings.TrimSpace(req.ConversationID),
		Collection:     strings.TrimSpace(req.Collection),
		DocumentIDs:    req.DocumentIDs,
		TopK:           req.TopK,
		ModeHint:       modeHint,
	}, nil
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query, err := decodeAskRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	answer, err := rt.asker.Ask(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordAsk(answer, start)
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordAsk(answer *domain.CitedAnswer, start time.Time) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAskObservation(
		"api",
		string(answer.Action),
		string(answer.Mode),
		len(answer.Sources),
		time.Since(start),
	)
	rt.metrics.RecordTokenUsage(
		"api",
		answer.Model,
		answer.Usage.PromptTokens,
		answer.Usage.CompletionTokens,
	)
}
