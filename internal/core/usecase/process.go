package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	segmenter ports.Segmenter
	embedder  ports.Embedder
	vectorDB  ports.VectorIndex
	queue     ports.MessageQueue
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	segmenter ports.Segmenter,
	embedder ports.Embedder,
	vectorDB ports.VectorIndex,
	queue ports.MessageQueue,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		vectorDB:  vectorDB,
		queue:     queue,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	// Answers synthesized from an earlier version of this document are
	// stale now. Fresh documents make this a no-op.
	if err := uc.queue.PublishDocumentInvalidated(ctx, documentID); err != nil {
		slog.Warn("invalidation_publish_failed", "document_id", documentID, "error", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return err
	}

	segments, err := uc.segment(ctx, text)
	if err != nil {
		return err
	}

	vectors, err := uc.embed(ctx, segments)
	if err != nil {
		return err
	}

	// Re-ingest replaces the old vectors instead of piling on top.
	if err := uc.vectorDB.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("drop stale vectors: %w", err)
	}

	if err := uc.index(ctx, doc, segments, vectors); err != nil {
		return err
	}

	return nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) segment(_ context.Context, text string) ([]domain.Segment, error) {
	segments := uc.segmenter.Split(text)
	if len(segments) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "segment document", errors.New("segmentation produced zero segments"))
	}
	return segments, nil
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, segments []domain.Segment) ([][]float32, error) {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed segments: %w", err)
	}
	if len(vectors) != len(segments) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed segments",
			fmt.Errorf("vectors/segments mismatch: %d/%d", len(vectors), len(segments)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) index(ctx context.Context, doc *domain.Document, segments []domain.Segment, vectors [][]float32) error {
	if err := uc.vectorDB.IndexSegments(ctx, doc, segments, vectors); err != nil {
		return fmt.Errorf("index segments in vector db: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
