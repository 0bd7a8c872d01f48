// Package memory provides the in-memory repositories the engine uses by
// default. A deployment that needs durability swaps in the postgres package
// without touching the engine's control flow.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
)

type AccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	order    []string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	r.order = append(r.order, a.ID)
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.accounts, id)
	for i, aid := range r.order {
		if aid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Account, 0, len(r.order))
	for _, id := range r.order {
		if a, ok := r.accounts[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AccountRepository) ListByPlatform(ctx context.Context, platform string) ([]*models.Account, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, a := range all {
		if a.Platform == platform {
			out = append(out, a)
		}
	}
	return out, nil
}

type PostRepository struct {
	mu    sync.Mutex
	posts map[string]*models.PostRequest
	order []string
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]*models.PostRequest)}
}

func (r *PostRepository) Create(ctx context.Context, p *models.PostRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.posts[p.ID] = &cp
	r.order = append(r.order, p.ID)
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*models.PostRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PostRepository) Update(ctx context.Context, p *models.PostRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r *PostRepository) list(filter func(*models.PostRequest) bool) []*models.PostRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.PostRequest, 0)
	for _, id := range r.order {
		p, ok := r.posts[id]
		if !ok || !filter(p) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (r *PostRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.PostRequest, error) {
	return r.list(func(p *models.PostRequest) bool { return p.AccountID == accountID }), nil
}

func (r *PostRepository) ListByStatus(ctx context.Context, status string) ([]*models.PostRequest, error) {
	return r.list(func(p *models.PostRequest) bool { return p.Status == status }), nil
}

func (r *PostRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.PostRequest, error) {
	return r.list(func(p *models.PostRequest) bool {
		return p.Status == models.StatusScheduled &&
			p.Options.ScheduledFor != nil &&
			!p.Options.ScheduledFor.After(now)
	}), nil
}
