package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

type RemoveDocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	vectorDB ports.VectorIndex
	queue    ports.MessageQueue
}

func NewRemoveDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	vectorDB ports.VectorIndex,
	queue ports.MessageQueue,
) *RemoveDocumentUseCase {
	return &RemoveDocumentUseCase{
		repo:     repo,
		storage:  storage,
		vectorDB: vectorDB,
		queue:    queue,
	}
}

// Remove deletes a document everywhere it lives: vector index, blob
// storage, metadata row. Cached answers built on it are invalidated
// through the queue so every instance drops them.
func (uc *RemoveDocumentUseCase) Remove(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.vectorDB.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete stored file: %w", err)
	}

	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentInvalidated(ctx, doc.ID); err != nil {
		slog.Warn("invalidation_publish_failed", "document_id", doc.ID, "error", err)
	}

	return nil
}
