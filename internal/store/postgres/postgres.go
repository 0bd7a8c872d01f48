// Package postgres backs the engine's repositories with Postgres. The engine
// itself never sees SQL; swapping this in for the memory package changes
// nothing in the control flow.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountCols = `id, platform, external_account_id, username, display_name,
	access_token, refresh_token, token_expires_at, is_active, metadata,
	created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	meta, _ := json.Marshal(a.Metadata)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
	`, a.ID, a.Platform, a.ExternalAccountID, a.Username, a.DisplayName,
		a.AccessToken, a.RefreshToken, a.TokenExpiresAt, a.IsActive, string(meta),
		a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	var meta []byte
	var expires sql.NullTime
	if err := row.Scan(&a.ID, &a.Platform, &a.ExternalAccountID, &a.Username, &a.DisplayName,
		&a.AccessToken, &a.RefreshToken, &expires, &a.IsActive, &meta,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		a.TokenExpiresAt = &t
	}
	if len(meta) > 0 && string(meta) != "null" {
		_ = json.Unmarshal(meta, &a.Metadata)
	}
	return &a, nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return a, err
}

func (r *AccountRepository) Update(ctx context.Context, a *models.Account) error {
	meta, _ := json.Marshal(a.Metadata)
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		   SET platform=$2, external_account_id=$3, username=$4, display_name=$5,
		       access_token=$6, refresh_token=$7, token_expires_at=$8,
		       is_active=$9, metadata=$10::jsonb, updated_at=$11
		 WHERE id=$1
	`, a.ID, a.Platform, a.ExternalAccountID, a.Username, a.DisplayName,
		a.AccessToken, a.RefreshToken, a.TokenExpiresAt, a.IsActive, string(meta),
		a.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) listWhere(ctx context.Context, where string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountCols+` FROM accounts `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	return r.listWhere(ctx, "")
}

func (r *AccountRepository) ListByPlatform(ctx context.Context, platform string) ([]*models.Account, error) {
	return r.listWhere(ctx, "WHERE platform = $1", platform)
}

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postCols = `id, account_id, platform, content, options, status,
	created_at, published_at, platform_post_id, error, retry_count, max_retries`

func (r *PostRepository) Create(ctx context.Context, p *models.PostRequest) error {
	content, _ := json.Marshal(p.Content)
	options, _ := json.Marshal(p.Options)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (`+postCols+`)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.AccountID, p.Platform, string(content), string(options), p.Status,
		p.CreatedAt, p.PublishedAt, p.PlatformPostID, p.Error, p.RetryCount, p.MaxRetries)
	return err
}

func scanPost(row interface{ Scan(...any) error }) (*models.PostRequest, error) {
	var p models.PostRequest
	var content, options []byte
	var publishedAt sql.NullTime
	var platformPostID, errMsg sql.NullString
	if err := row.Scan(&p.ID, &p.AccountID, &p.Platform, &content, &options, &p.Status,
		&p.CreatedAt, &publishedAt, &platformPostID, &errMsg, &p.RetryCount, &p.MaxRetries); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(content, &p.Content)
	_ = json.Unmarshal(options, &p.Options)
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	if platformPostID.Valid {
		s := platformPostID.String
		p.PlatformPostID = &s
	}
	if errMsg.Valid {
		s := errMsg.String
		p.Error = &s
	}
	return &p, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*models.PostRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postCols+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return p, err
}

func (r *PostRepository) Update(ctx context.Context, p *models.PostRequest) error {
	content, _ := json.Marshal(p.Content)
	options, _ := json.Marshal(p.Options)
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		   SET content=$2::jsonb, options=$3::jsonb, status=$4, published_at=$5,
		       platform_post_id=$6, error=$7, retry_count=$8, max_retries=$9
		 WHERE id=$1
	`, p.ID, string(content), string(options), p.Status, p.PublishedAt,
		p.PlatformPostID, p.Error, p.RetryCount, p.MaxRetries)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PostRepository) listWhere(ctx context.Context, where string, args ...any) ([]*models.PostRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postCols+` FROM posts `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.PostRequest, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.PostRequest, error) {
	return r.listWhere(ctx, "WHERE account_id = $1", accountID)
}

func (r *PostRepository) ListByStatus(ctx context.Context, status string) ([]*models.PostRequest, error) {
	return r.listWhere(ctx, "WHERE status = $1", status)
}

func (r *PostRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.PostRequest, error) {
	return r.listWhere(ctx, `
		WHERE status = 'scheduled'
		  AND (options->>'scheduledFor') IS NOT NULL
		  AND (options->>'scheduledFor')::timestamptz <= $1`, now)
}
