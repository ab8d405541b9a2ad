package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newConversationRepoWithMock(t *testing.T) (*ConversationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ConversationRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCreateConversationInsertsRow(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "finance", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.CreateConversation(context.Background(), "finance")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateConversationStoresNullForEmptyCollection(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := repo.CreateConversation(context.Background(), ""); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddMessagePersistsMetadata(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs(sqlmock.AnyArg(), "conv-1", "assistant", "It rose 12%.", []byte(`{"action":"synthesize"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddMessage(context.Background(), "conv-1", "assistant", "It rose 12%.", map[string]string{"action": "synthesize"})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBuildContextRestoresChronologicalOrder(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "metadata", "created_at"}).
		AddRow("m2", "conv-1", "assistant", "It rose 12%.", []byte(`{}`), base.Add(time.Minute)).
		AddRow("m1", "conv-1", "user", "How did revenue change?", []byte(`{}`), base)

	mock.ExpectQuery("SELECT id, conversation_id, role, content, metadata, created_at").
		WithArgs("conv-1", 10).
		WillReturnRows(rows)

	text, err := repo.BuildContext(context.Background(), "conv-1", 10)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	want := "user: How did revenue change?\nassistant: It rose 12%."
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBuildContextSkipsQueryForZeroLimit(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	text, err := repo.BuildContext(context.Background(), "conv-1", 0)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty context, got %q", text)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMessagesParsesMetadata(t *testing.T) {
	repo, mock, done := newConversationRepoWithMock(t)
	defer done()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "metadata", "created_at"}).
		AddRow("m1", "conv-1", "assistant", "Could you clarify?", []byte(`{"action":"ask_clarification"}`), created)

	mock.ExpectQuery("SELECT id, conversation_id, role, content, metadata, created_at").
		WithArgs("conv-1", 5).
		WillReturnRows(rows)

	messages, err := repo.ListMessages(context.Background(), "conv-1", 5)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	if messages[0].Metadata["action"] != "ask_clarification" {
		t.Fatalf("unexpected metadata: %v", messages[0].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
