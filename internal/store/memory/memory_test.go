package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
)

func TestAccountRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	if _, err := repo.Get(ctx, "acc_1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a := &models.Account{ID: "acc_1", Platform: "twitter", Username: "first"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "acc_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Reads are snapshots; mutating them must not leak into the store.
	got.Username = "mutated"
	again, _ := repo.Get(ctx, "acc_1")
	if again.Username != "first" {
		t.Fatalf("store leaked a shared pointer: %s", again.Username)
	}

	got.Username = "second"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ = repo.Get(ctx, "acc_1")
	if again.Username != "second" {
		t.Fatalf("update not applied: %s", again.Username)
	}

	if err := repo.Update(ctx, &models.Account{ID: "acc_nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("updating missing account: got %v", err)
	}

	if err := repo.Delete(ctx, "acc_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "acc_1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}

func TestAccountRepository_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	repo.Create(ctx, &models.Account{ID: "acc_a", Platform: "twitter"})
	repo.Create(ctx, &models.Account{ID: "acc_b", Platform: "linkedin"})
	repo.Create(ctx, &models.Account{ID: "acc_c", Platform: "twitter"})

	all, _ := repo.List(ctx)
	if len(all) != 3 || all[0].ID != "acc_a" || all[2].ID != "acc_c" {
		t.Fatalf("List order wrong: %v", ids(all))
	}

	tw, _ := repo.ListByPlatform(ctx, "twitter")
	if len(tw) != 2 || tw[0].ID != "acc_a" || tw[1].ID != "acc_c" {
		t.Fatalf("ListByPlatform wrong: %v", ids(tw))
	}
}

func ids(accounts []*models.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.ID
	}
	return out
}

func TestPostRepository_ListDueScheduled(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	repo.Create(ctx, &models.PostRequest{ID: "post_due", Status: models.StatusScheduled, Options: models.PostOptions{ScheduledFor: &past}})
	repo.Create(ctx, &models.PostRequest{ID: "post_future", Status: models.StatusScheduled, Options: models.PostOptions{ScheduledFor: &future}})
	repo.Create(ctx, &models.PostRequest{ID: "post_pending", Status: models.StatusPending})
	repo.Create(ctx, &models.PostRequest{ID: "post_exact", Status: models.StatusScheduled, Options: models.PostOptions{ScheduledFor: &now}})

	due, err := repo.ListDueScheduled(ctx, now)
	if err != nil {
		t.Fatalf("ListDueScheduled: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d posts, want 2", len(due))
	}
	// A post scheduled for exactly now is due.
	if due[0].ID != "post_due" || due[1].ID != "post_exact" {
		t.Fatalf("unexpected due set: %s, %s", due[0].ID, due[1].ID)
	}
}

func TestPostRepository_StatusFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository()
	repo.Create(ctx, &models.PostRequest{ID: "post_1", AccountID: "acc_1", Status: models.StatusPending})
	repo.Create(ctx, &models.PostRequest{ID: "post_2", AccountID: "acc_1", Status: models.StatusPublished})
	repo.Create(ctx, &models.PostRequest{ID: "post_3", AccountID: "acc_2", Status: models.StatusPending})

	pending, _ := repo.ListByStatus(ctx, models.StatusPending)
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	byAcct, _ := repo.ListByAccount(ctx, "acc_1")
	if len(byAcct) != 2 {
		t.Fatalf("acc_1 posts = %d, want 2", len(byAcct))
	}
}
