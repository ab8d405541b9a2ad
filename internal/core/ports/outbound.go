package ports

import (
	"context"
	"io"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

// QueryPlanner decomposes one user query into executable sub-queries.
type QueryPlanner interface {
	Decompose(ctx context.Context, query, schemaContext string, opts domain.PlanOptions) (*domain.QueryPlan, error)
}

// Embedder builds vectors for segments and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex indexes segments and performs dense search.
type VectorIndex interface {
	IndexSegments(ctx context.Context, doc *domain.Document, segments []domain.Segment, vectors [][]float32) error
	Search(ctx context.Context, collection string, vector []float32, topK int, docIDFilter []string) ([]domain.RetrievedSegment, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// QueryExpander adds synonym variants used only for lexical scoring.
type QueryExpander interface {
	Expand(ctx context.Context, query string, maxExpansionsPerTerm int) (string, error)
}

// AnswerGenerator produces free text from a fully built prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.Generation, error)
}

// ConversationLog records turns and rebuilds prior context.
type ConversationLog interface {
	CreateConversation(ctx context.Context, collectionID string) (string, error)
	AddMessage(ctx context.Context, conversationID, role, content string, metadata map[string]string) error
	BuildContext(ctx context.Context, conversationID string, maxMessages int) (string, error)
}

// ConversationReader serves stored history to the outer surfaces.
type ConversationReader interface {
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.ConversationMessage, error)
}

// DocumentLookup resolves source document metadata for ranking and
// citations.
type DocumentLookup interface {
	ResolveSources(ctx context.Context, ids []string) (map[string]domain.SourceDocument, error)
}

// SynthesisCache reuses synthesized answers when the same query meets
// unchanged evidence. It never fails a request: lookup misses are the
// only error mode.
type SynthesisCache interface {
	TryGet(query, evidenceHash string) (string, bool)
	TryGetEvidence(query string) (*domain.CachedEvidence, bool)
	Set(query, evidence, response string, sourceDocumentIDs []string)
	InvalidateForDocument(documentID string) int
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document lifecycle events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishDocumentInvalidated(ctx context.Context, documentID string) error
	SubscribeDocumentInvalidated(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Segmenter splits extracted text into indexable segments.
type Segmenter interface {
	Split(text string) []domain.Segment
}
