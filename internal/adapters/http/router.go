package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/olegbakhtin/document-qa-service/internal/config"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
	"github.com/olegbakhtin/document-qa-service/internal/observability/metrics"
)

type Router struct {
	cfg           config.Config
	asker         ports.QuestionService
	ingestor      ports.DocumentIngestor
	documents     ports.DocumentReader
	remover       ports.DocumentRemover
	conversations ports.ConversationLog
	history       ports.ConversationReader

	metrics   *metrics.HTTPServerMetrics
	readiness func(context.Context) error
}

func NewRouter(
	cfg config.Config,
	asker ports.QuestionService,
	ingestor ports.DocumentIngestor,
	documents ports.DocumentReader,
	remover ports.DocumentRemover,
	conversations ports.ConversationLog,
	history ports.ConversationReader,
) *Router {
	return &Router{
		cfg:           cfg,
		asker:         asker,
		ingestor:      ingestor,
		documents:     documents,
		remover:       remover,
		conversations: conversations,
		history:       history,
	}
}

// SetMetrics attaches the api metrics registry. Without it the router
// serves no /metrics endpoint and records nothing.
func (rt *Router) SetMetrics(m *metrics.HTTPServerMetrics) {
	rt.metrics = m
}

// SetReadiness attaches the probe behind /readyz, typically a database
// ping.
func (rt *Router) SetReadiness(probe func(context.Context) error) {
	rt.readiness = probe
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.HandleFunc("/openapi.yaml", rt.openapiDocument)
	mux.HandleFunc("/v1/ask", rt.withRequestValidation(rt.ask))
	mux.HandleFunc("/v1/ask/stream", rt.withRequestValidation(rt.askStream))
	mux.HandleFunc("/v1/documents", rt.withRequestValidation(rt.documentsCollection))
	mux.HandleFunc("/v1/documents/", rt.withRequestValidation(rt.documentByID))
	mux.HandleFunc("/v1/conversations", rt.withRequestValidation(rt.createConversation))
	mux.HandleFunc("/v1/conversations/", rt.withRequestValidation(rt.conversationByID))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait(rt.cfg))
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.readiness == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if err := rt.readiness(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
