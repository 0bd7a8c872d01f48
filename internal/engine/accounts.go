package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/platforms"
)

// AccountInput is the caller-supplied data for a new account. Credentials are
// opaque to the engine; they are only handed to the platform adapter at
// publish time.
type AccountInput struct {
	Platform          string            `json:"platform"`
	ExternalAccountID string            `json:"externalAccountId"`
	Username          string            `json:"username"`
	DisplayName       string            `json:"displayName"`
	AccessToken       string            `json:"accessToken"`
	RefreshToken      string            `json:"refreshToken"`
	TokenExpiresAt    *time.Time        `json:"tokenExpiresAt,omitempty"`
	IsActive          *bool             `json:"isActive,omitempty"` // nil means active
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// AddAccount registers a connected social identity and returns its id. No
// credential validation happens here; a bad token surfaces as a publish
// failure from the adapter.
func (e *Engine) AddAccount(ctx context.Context, in AccountInput) (string, error) {
	if _, ok := platforms.Lookup(in.Platform); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, in.Platform)
	}
	now := e.now()
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	acct := &models.Account{
		ID:                fmt.Sprintf("acc_%s", randHex(12)),
		Platform:          in.Platform,
		ExternalAccountID: in.ExternalAccountID,
		Username:          in.Username,
		DisplayName:       in.DisplayName,
		AccessToken:       in.AccessToken,
		RefreshToken:      in.RefreshToken,
		TokenExpiresAt:    in.TokenExpiresAt,
		IsActive:          active,
		Metadata:          in.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		return "", err
	}
	e.logger.Printf("[Accounts] added accountId=%s platform=%s username=%s active=%t", acct.ID, acct.Platform, acct.Username, acct.IsActive)
	e.emit(Event{Type: EventAccountAdded, Account: acct})
	return acct.ID, nil
}

// UpdateAccount merges the patch into the account and bumps updatedAt.
func (e *Engine) UpdateAccount(ctx context.Context, id string, patch models.AccountPatch) error {
	acct, err := e.accounts.Get(ctx, id)
	if err != nil {
		return ErrUnknownAccount
	}
	if patch.Username != nil {
		acct.Username = *patch.Username
	}
	if patch.DisplayName != nil {
		acct.DisplayName = *patch.DisplayName
	}
	if patch.AccessToken != nil {
		acct.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		acct.RefreshToken = *patch.RefreshToken
	}
	if patch.TokenExpiresAt != nil {
		acct.TokenExpiresAt = patch.TokenExpiresAt
	}
	if patch.IsActive != nil {
		acct.IsActive = *patch.IsActive
	}
	if patch.Metadata != nil {
		if acct.Metadata == nil {
			acct.Metadata = make(map[string]string, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			acct.Metadata[k] = v
		}
	}
	acct.UpdatedAt = e.now()
	if err := e.accounts.Update(ctx, acct); err != nil {
		return ErrUnknownAccount
	}
	e.logger.Printf("[Accounts] updated accountId=%s", id)
	e.emit(Event{Type: EventAccountUpdated, Account: acct})
	return nil
}

// RemoveAccount cancels every non-published post owned by the account, then
// deletes the account record.
func (e *Engine) RemoveAccount(ctx context.Context, id string) error {
	acct, err := e.accounts.Get(ctx, id)
	if err != nil {
		return ErrUnknownAccount
	}
	posts, err := e.posts.ListByAccount(ctx, id)
	if err != nil {
		return err
	}
	cancelled := 0
	for _, p := range posts {
		if p.Status == models.StatusPublished || p.Status == models.StatusCancelled {
			continue
		}
		if e.CancelPost(ctx, p.ID) {
			cancelled++
		}
	}
	if err := e.accounts.Delete(ctx, id); err != nil {
		return ErrUnknownAccount
	}
	e.logger.Printf("[Accounts] removed accountId=%s cancelledPosts=%d", id, cancelled)
	e.emit(Event{Type: EventAccountRemoved, Account: acct})
	return nil
}

func (e *Engine) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acct, err := e.accounts.Get(ctx, id)
	if err != nil {
		return nil, ErrUnknownAccount
	}
	return acct, nil
}

func (e *Engine) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return e.accounts.List(ctx)
}

func (e *Engine) ListActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	all, err := e.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Account, 0, len(all))
	for _, a := range all {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (e *Engine) ListAccountsByPlatform(ctx context.Context, platform string) ([]*models.Account, error) {
	return e.accounts.ListByPlatform(ctx, platform)
}
