package ports

import (
	"context"
	"io"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

// QuestionService is the inbound contract for cited question answering.
type QuestionService interface {
	Ask(ctx context.Context, query domain.AskQuery) (*domain.CitedAnswer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentRemover deletes a document and invalidates derived state.
type DocumentRemover interface {
	Remove(ctx context.Context, documentID string) error
}
