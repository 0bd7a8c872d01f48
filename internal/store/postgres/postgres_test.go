package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
)

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "platform", "external_account_id", "username", "display_name",
		"access_token", "refresh_token", "token_expires_at", "is_active", "metadata",
		"created_at", "updated_at",
	})
}

func postRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "platform", "content", "options", "status",
		"created_at", "published_at", "platform_post_id", "error", "retry_count", "max_retries",
	})
}

func TestAccountRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1`).
		WithArgs("acc_1").
		WillReturnRows(accountRows().AddRow(
			"acc_1", "twitter", "ext-9", "handle", "Display",
			"tok", "refresh", nil, true, []byte(`{"team":"growth"}`),
			now, now,
		))

	repo := NewAccountRepository(db)
	a, err := repo.Get(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Platform != "twitter" || a.Username != "handle" {
		t.Fatalf("unexpected account: %+v", a)
	}
	if a.TokenExpiresAt != nil {
		t.Fatalf("null token_expires_at should stay nil")
	}
	if a.Metadata["team"] != "growth" {
		t.Fatalf("metadata not decoded: %v", a.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAccountRepository_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1`).
		WithArgs("acc_missing").
		WillReturnRows(accountRows())

	repo := NewAccountRepository(db)
	if _, err := repo.Get(context.Background(), "acc_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_UpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE accounts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAccountRepository(db)
	acct := &models.Account{ID: "acc_gone", Platform: "twitter"}
	if err := repo.Update(context.Background(), acct); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
		WithArgs("acc_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAccountRepository(db)
	if err := repo.Delete(context.Background(), "acc_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := &models.PostRequest{
		ID:         "post_1",
		AccountID:  "acc_1",
		Platform:   "twitter",
		Content:    models.PostContent{Text: "hello"},
		Status:     models.StatusPending,
		CreatedAt:  now,
		MaxRetries: 3,
	}

	mock.ExpectExec(`INSERT INTO posts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewPostRepository(db)
	if err := repo.Create(context.Background(), post); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).
		WithArgs("post_1").
		WillReturnRows(postRows().AddRow(
			"post_1", "acc_1", "twitter", []byte(`{"text":"hello"}`), []byte(`{}`), "published",
			now, now, "tw_555", nil, 1, 3,
		))

	got, err := repo.Get(context.Background(), "post_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content.Text != "hello" {
		t.Fatalf("content not decoded: %+v", got.Content)
	}
	if got.PlatformPostID == nil || *got.PlatformPostID != "tw_555" {
		t.Fatalf("platform_post_id not decoded: %v", got.PlatformPostID)
	}
	if got.Error != nil {
		t.Fatalf("null error column should stay nil")
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(now) {
		t.Fatalf("published_at not decoded: %v", got.PublishedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostRepository_ListDueScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sched := now.Add(-time.Minute).Format(time.RFC3339)
	mock.ExpectQuery(`SELECT (.+) FROM posts\s+WHERE status = 'scheduled'`).
		WithArgs(now).
		WillReturnRows(postRows().AddRow(
			"post_due", "acc_1", "twitter", []byte(`{"text":"later"}`),
			[]byte(`{"scheduledFor":"`+sched+`"}`), "scheduled",
			now.Add(-time.Hour), nil, nil, nil, 0, 3,
		))

	repo := NewPostRepository(db)
	due, err := repo.ListDueScheduled(context.Background(), now)
	if err != nil {
		t.Fatalf("ListDueScheduled: %v", err)
	}
	if len(due) != 1 || due[0].ID != "post_due" {
		t.Fatalf("unexpected due set: %v", due)
	}
	if due[0].Options.ScheduledFor == nil {
		t.Fatalf("scheduledFor not decoded from options jsonb")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
