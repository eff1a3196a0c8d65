package storage

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*queryLogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &queryLogRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func TestEnsureSchema(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS query_log`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertQueryLog(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO query_log`).
		WithArgs("req-1", "What is AAPL's return this year?", "ok", int64(152), created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertQueryLog(QueryLog{
		RequestID: "req-1",
		Prompt:    "What is AAPL's return this year?",
		Status:    "ok",
		LatencyMS: 152,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertQueryLog_DefaultsCreatedAt(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec(`INSERT INTO query_log`).
		WithArgs("req-2", "p", "error", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.InsertQueryLog(QueryLog{RequestID: "req-2", Prompt: "p", Status: "error", LatencyMS: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertQueryLog_DBError(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec(`INSERT INTO query_log`).
		WillReturnError(errDummy{})

	if err := repo.InsertQueryLog(QueryLog{RequestID: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
