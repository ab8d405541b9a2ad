package mcpadapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type mcpAskFake struct {
	err   error
	query domain.AskQuery
}

func (f *mcpAskFake) Ask(_ context.Context, query domain.AskQuery) (*domain.CitedAnswer, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CitedAnswer{
		Answer: "Revenue grew 12% [1].",
		Sources: []domain.Citation{{
			Number:       1,
			DocumentID:   "doc-1",
			DocumentName: "report.pdf",
			SegmentID:    "doc-1_s_0",
			Excerpt:      "Revenue grew 12%.",
		}},
		ConversationID: "conv-1",
	}, nil
}

type mcpDocsFake struct {
	err  error
	docs []domain.Document
}

func (f mcpDocsFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not wired")
}

func (f mcpDocsFake) ListRecent(context.Context, int) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestHandleAskFormatsAnswerWithSources(t *testing.T) {
	asker := &mcpAskFake{}
	srv := NewServer(asker, mcpDocsFake{})

	result, err := srv.handleAsk(context.Background(), toolRequest(map[string]any{
		"question":        "How did revenue change?",
		"conversation_id": "conv-1",
		"top_k":           float64(3),
	}))
	if err != nil {
		t.Fatalf("handleAsk() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Revenue grew 12% [1].") {
		t.Fatalf("expected answer text, got:\n%s", text)
	}
	if !strings.Contains(text, "[1] report.pdf (doc-1_s_0)") {
		t.Fatalf("expected citation line, got:\n%s", text)
	}
	if !strings.Contains(text, "conversation_id: conv-1") {
		t.Fatalf("expected conversation id line, got:\n%s", text)
	}

	if asker.query.Question != "How did revenue change?" {
		t.Fatalf("unexpected question: %q", asker.query.Question)
	}
	if asker.query.TopK != 3 {
		t.Fatalf("expected top k 3, got %d", asker.query.TopK)
	}
}

func TestHandleAskRequiresQuestion(t *testing.T) {
	srv := NewServer(&mcpAskFake{}, mcpDocsFake{})

	result, err := srv.handleAsk(context.Background(), toolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handleAsk() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result for missing question")
	}
}

func TestHandleAskReportsPipelineFailure(t *testing.T) {
	srv := NewServer(&mcpAskFake{err: errors.New("planner unavailable")}, mcpDocsFake{})

	result, err := srv.handleAsk(context.Background(), toolRequest(map[string]any{
		"question": "anything",
	}))
	if err != nil {
		t.Fatalf("handleAsk() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result for pipeline failure")
	}
}

func TestHandleListDocumentsRendersJSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := NewServer(&mcpAskFake{}, mcpDocsFake{docs: []domain.Document{
		{ID: "doc-1", Filename: "report.pdf", Status: domain.StatusReady, CreatedAt: now},
		{ID: "doc-2", Filename: "broken.xlsx", Status: domain.StatusFailed, Error: "no text extracted", CreatedAt: now},
	}})

	result, err := srv.handleListDocuments(context.Background(), toolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handleListDocuments() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, `"id": "doc-1"`) {
		t.Fatalf("expected first document, got:\n%s", text)
	}
	if !strings.Contains(text, `"error": "no text extracted"`) {
		t.Fatalf("expected failure reason, got:\n%s", text)
	}
}
