package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc           *domain.Document
	getErr        error
	statusErr     error
	failStatusErr error
	statusCalls   []statusCall
}

func (f *processRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) ListRecent(context.Context, int) ([]domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *processRepoFake) Delete(context.Context, string) error { return errors.New("not implemented") }

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type segmenterFake struct {
	segments []domain.Segment
}

func (f *segmenterFake) Split(string) []domain.Segment { return f.segments }

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) { return nil, nil }

type vectorFake struct {
	indexed int
	deleted []string
	err     error
}

func (f *vectorFake) IndexSegments(_ context.Context, _ *domain.Document, segments []domain.Segment, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = len(segments)
	return nil
}

func (f *vectorFake) Search(context.Context, string, []float32, int, []string) ([]domain.RetrievedSegment, error) {
	return nil, nil
}

func (f *vectorFake) DeleteByDocument(_ context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type processQueueFake struct {
	invalidated []string
	err         error
}

func (f *processQueueFake) PublishDocumentIngested(context.Context, string) error {
	return errors.New("not implemented")
}

func (f *processQueueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *processQueueFake) PublishDocumentInvalidated(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, documentID)
	return nil
}

func (f *processQueueFake) SubscribeDocumentInvalidated(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	vector := &vectorFake{}
	queue := &processQueueFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "text"},
		&segmenterFake{segments: []domain.Segment{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}},
		&embedderFake{vectors: [][]float32{{1}, {2}}},
		vector,
		queue,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if vector.indexed != 2 {
		t.Fatalf("expected 2 indexed segments, got %d", vector.indexed)
	}
	if len(vector.deleted) != 1 || vector.deleted[0] != "doc-1" {
		t.Fatalf("expected stale vectors dropped for doc-1, got %v", vector.deleted)
	}
	if len(queue.invalidated) != 1 || queue.invalidated[0] != "doc-1" {
		t.Fatalf("expected invalidation event for doc-1, got %v", queue.invalidated)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{err: errors.New("extract fail")},
		&segmenterFake{segments: []domain.Segment{{Text: "a"}}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
		&processQueueFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing + failed status updates, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls[1])
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "text"},
		&segmenterFake{segments: []domain.Segment{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
		&processQueueFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected final failed status, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDSucceedsWhenInvalidationPublishFails(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "text"},
		&segmenterFake{segments: []domain.Segment{{Text: "a"}}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
		&processQueueFake{err: errors.New("nats down")},
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusReady {
		t.Fatalf("expected ready status despite publish failure, got %+v", repo.statusCalls)
	}
}
