package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

const defaultListLimit = 20

// Server exposes the question answering pipeline as MCP tools over
// stdio, so agent runtimes can call it without going through HTTP.
type Server struct {
	asker     ports.QuestionService
	documents ports.DocumentReader
	inner     *server.MCPServer
}

func NewServer(asker ports.QuestionService, documents ports.DocumentReader) *Server {
	s := &Server{
		asker:     asker,
		documents: documents,
	}

	inner := server.NewMCPServer(
		"document-qa-service",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	inner.AddTool(askTool(), s.handleAsk)
	inner.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.inner = inner
	return s
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.inner)
}

func askTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Answer a question against the indexed documents and cite the segments the answer came from."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer."),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to continue; omit to ask a standalone question."),
		),
		mcp.WithString("collection",
			mcp.Description("Restrict retrieval to one collection."),
		),
		mcp.WithArray("document_ids",
			mcp.Description("Restrict retrieval to these document ids."),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("top_k",
			mcp.Description("How many ranked segments feed the answer."),
		),
		mcp.WithString("mode_hint",
			mcp.Description("Force a retrieval mode: semantic, hybrid, or keyword."),
		),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List recently uploaded documents with their processing state."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents to return."),
		),
	)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.asker.Ask(ctx, domain.AskQuery{
		Question:       question,
		ConversationID: request.GetString("conversation_id", ""),
		Collection:     request.GetString("collection", ""),
		DocumentIDs:    request.GetStringSlice("document_ids", nil),
		TopK:           request.GetInt("top_k", 0),
		ModeHint:       request.GetString("mode_hint", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAnswer(answer)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultListLimit)
	docs, err := s.documents.ListRecent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, documentSummary{
			ID:        doc.ID,
			Filename:  doc.Filename,
			Status:    string(doc.Status),
			Error:     doc.Error,
			CreatedAt: doc.CreatedAt,
		})
	}
	raw, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal documents: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

type documentSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func formatAnswer(answer *domain.CitedAnswer) string {
	var b strings.Builder
	b.WriteString(answer.Answer)
	if len(answer.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, source := range answer.Sources {
			fmt.Fprintf(&b, "[%d] %s (%s)\n", source.Number, source.DocumentName, source.SegmentID)
		}
	}
	if answer.ConversationID != "" {
		fmt.Fprintf(&b, "\nconversation_id: %s\n", answer.ConversationID)
	}
	return b.String()
}
