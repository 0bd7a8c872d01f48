package store

import (
	"context"
	"errors"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

// ErrNotFound is returned by Get/Update/Delete when the id does not resolve.
var ErrNotFound = errors.New("not_found")

// AccountRepository owns Account records. The engine references accounts by id
// and never embeds them into posts.
type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	Get(ctx context.Context, id string) (*models.Account, error)
	Update(ctx context.Context, a *models.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Account, error)
	ListByPlatform(ctx context.Context, platform string) ([]*models.Account, error)
}

// PostRepository owns PostRequest records. Posts are never deleted, only moved
// to a terminal status, so there is no Delete.
//
// List methods return posts in creation order; the scheduler relies on that
// for stable FIFO behavior.
type PostRepository interface {
	Create(ctx context.Context, p *models.PostRequest) error
	Get(ctx context.Context, id string) (*models.PostRequest, error)
	Update(ctx context.Context, p *models.PostRequest) error
	ListByAccount(ctx context.Context, accountID string) ([]*models.PostRequest, error)
	ListByStatus(ctx context.Context, status string) ([]*models.PostRequest, error)
	// ListDueScheduled returns scheduled posts whose scheduledFor is at or before now.
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.PostRequest, error)
}
