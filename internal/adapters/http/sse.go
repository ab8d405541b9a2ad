package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type streamDelta struct {
	Delta string `json:"delta"`
}

type streamMeta struct {
	Sources        []domain.Citation  `json:"sources"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Flags          domain.AnswerFlags `json:"flags"`
}

// askStream answers the question first and then replays the final text
// as server-sent delta events, closing with a metadata event and the
// [DONE] marker.
func (rt *Router) askStream(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	delay := time.Duration(rt.cfg.APIStreamChunkDelayMs) * time.Millisecond
	for i, part := range splitByRunes(answer.Answer, rt.cfg.APIStreamChunkChars) {
		if i > 0 && delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
		if err := writeSSEEvent(w, streamDelta{Delta: part}); err != nil {
			return
		}
		flusher.Flush()
	}

	meta := streamMeta{
		Sources:        answer.Sources,
		ConversationID: answer.ConversationID,
		Flags:          answer.Flags,
	}
	if err := writeSSEEvent(w, meta); err != nil {
		return
	}
	flusher.Flush()

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return
	}
	flusher.Flush()
}

func writeSSEEvent(w io.Writer, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", raw)
	return err
}

func splitByRunes(text string, chunkChars int) []string {
	if chunkChars <= 0 {
		chunkChars = 120
	}
	if strings.TrimSpace(text) == "" {
		return []string{""}
	}
	if utf8.RuneCountInString(text) <= chunkChars {
		return []string{text}
	}

	parts := make([]string, 0, utf8.RuneCountInString(text)/chunkChars+1)
	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkChars {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
