// Package engine implements the multi-platform publishing engine: content
// validation, scheduling, the publish queue, rate limiting, retries with
// backoff, and cancellation. It is a library component; persistence and the
// platform HTTP clients are injected collaborators.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/adapters"
	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/platforms"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
	"github.com/PortNumber53/simple-publish-engine/internal/store/memory"
)

const (
	defaultTickInterval = 10 * time.Second
	defaultMaxRetries   = 3
)

// Config wires an Engine's collaborators. Zero-value fields get in-memory /
// stdlib defaults, so `engine.New(engine.Config{Adapters: ...})` is a working
// setup for tests.
type Config struct {
	Accounts     store.AccountRepository
	Posts        store.PostRepository
	Limiter      *RateLimiter
	Adapters     map[string]adapters.Adapter
	TickInterval time.Duration
	// MaxRetries bounds publish retries per post; 0 means the default of 3.
	MaxRetries int
	Logger     *log.Logger
	// Now overrides the clock, for deterministic tests.
	Now func() time.Time
}

type Engine struct {
	accounts   store.AccountRepository
	posts      store.PostRepository
	limiter    *RateLimiter
	adapters   map[string]adapters.Adapter
	logger     *log.Logger
	tick       time.Duration
	maxRetries int
	nowFunc    func() time.Time

	mu             sync.Mutex
	queue          []string            // post ids, FIFO
	queued         map[string]struct{} // membership index for queue
	retryTimers    map[string]*time.Timer
	listeners      map[int]Listener
	nextListenerID int
	running        bool
	stopLoop       context.CancelFunc
	loopDone       chan struct{}
}

func New(cfg Config) *Engine {
	e := &Engine{
		accounts:    cfg.Accounts,
		posts:       cfg.Posts,
		limiter:     cfg.Limiter,
		adapters:    cfg.Adapters,
		logger:      cfg.Logger,
		tick:        cfg.TickInterval,
		maxRetries:  cfg.MaxRetries,
		nowFunc:     cfg.Now,
		queued:      make(map[string]struct{}),
		retryTimers: make(map[string]*time.Timer),
		listeners:   make(map[int]Listener),
	}
	if e.accounts == nil {
		e.accounts = memory.NewAccountRepository()
	}
	if e.posts == nil {
		e.posts = memory.NewPostRepository()
	}
	if e.nowFunc == nil {
		e.nowFunc = time.Now
	}
	if e.limiter == nil {
		e.limiter = NewRateLimiterWithClock(e.nowFunc)
	}
	if e.adapters == nil {
		e.adapters = map[string]adapters.Adapter{}
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.tick <= 0 {
		e.tick = defaultTickInterval
	}
	if e.maxRetries <= 0 {
		e.maxRetries = defaultMaxRetries
	}
	return e
}

func (e *Engine) now() time.Time { return e.nowFunc() }

// GetPlatformLimits exposes the static limits record for a platform.
func (e *Engine) GetPlatformLimits(platform string) (platforms.Limits, bool) {
	return platforms.Lookup(platform)
}

// RateLimitRemaining reports the unused hourly publish quota for a platform.
func (e *Engine) RateLimitRemaining(platform string) int {
	return e.limiter.Remaining(platform)
}

// GetPost returns a snapshot of one post.
func (e *Engine) GetPost(ctx context.Context, id string) (*models.PostRequest, error) {
	p, err := e.posts.Get(ctx, id)
	if err != nil {
		return nil, ErrUnknownPost
	}
	return p, nil
}

func (e *Engine) GetPostsByAccount(ctx context.Context, accountID string) ([]*models.PostRequest, error) {
	return e.posts.ListByAccount(ctx, accountID)
}

func (e *Engine) GetPostsByStatus(ctx context.Context, status string) ([]*models.PostRequest, error) {
	return e.posts.ListByStatus(ctx, status)
}

func (e *Engine) GetScheduledPosts(ctx context.Context) ([]*models.PostRequest, error) {
	return e.posts.ListByStatus(ctx, models.StatusScheduled)
}

// QueueLength reports how many posts are waiting in the publish queue.
func (e *Engine) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func randHex(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
