package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

// SchedulePost validates content against the account's platform limits and,
// only if valid, records the post. Posts with a future scheduledFor start out
// `scheduled`; everything else is `pending` and goes straight onto the publish
// queue. publishImmediately forces enqueueing regardless of scheduledFor.
//
// Validation and account-resolution failures are returned synchronously and
// leave no state behind.
func (e *Engine) SchedulePost(ctx context.Context, accountID string, content models.PostContent, opts models.PostOptions) (*models.PostRequest, error) {
	acct, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, ErrUnknownAccount
	}
	if !acct.IsActive {
		return nil, ErrInactiveAccount
	}
	if v := ValidateContent(acct.Platform, content); !v.Valid {
		return nil, &ValidationError{Platform: acct.Platform, Problems: v.Errors}
	}

	now := e.now()
	status := models.StatusPending
	if opts.ScheduledFor != nil && opts.ScheduledFor.After(now) {
		status = models.StatusScheduled
	}
	post := &models.PostRequest{
		ID:         fmt.Sprintf("post_%s", randHex(12)),
		AccountID:  accountID,
		Platform:   acct.Platform,
		Content:    content,
		Options:    opts,
		Status:     status,
		CreatedAt:  now,
		MaxRetries: e.maxRetries,
	}
	if err := e.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if status == models.StatusPending || opts.PublishImmediately {
		e.mu.Lock()
		e.enqueueLocked(post.ID)
		e.mu.Unlock()
	}
	e.logger.Printf("[Scheduler] scheduled postId=%s accountId=%s platform=%s status=%s scheduledFor=%s",
		post.ID, accountID, post.Platform, status, fmtTimePtr(opts.ScheduledFor))
	e.emit(Event{Type: EventPostScheduled, Post: post})
	return post, nil
}

// CancelPost moves a post to the terminal cancelled state and drops it from
// the publish queue and any pending retry. It reports false when the post is
// unknown or already published. A cancel racing an in-flight adapter call is
// best effort: the call is not interrupted, but its result is discarded.
func (e *Engine) CancelPost(ctx context.Context, id string) bool {
	e.mu.Lock()
	post, err := e.posts.Get(ctx, id)
	if err != nil || post.Status == models.StatusPublished {
		e.mu.Unlock()
		return false
	}
	if t, ok := e.retryTimers[id]; ok {
		t.Stop()
		delete(e.retryTimers, id)
	}
	e.removeFromQueueLocked(id)
	post.Status = models.StatusCancelled
	_ = e.posts.Update(ctx, post)
	e.mu.Unlock()

	e.logger.Printf("[Scheduler] cancelled postId=%s", id)
	e.emit(Event{Type: EventPostCancelled, Post: post})
	return true
}

// PublishNow short-circuits the queue and publishes one post synchronously.
// Account and adapter problems are returned to the caller before any state
// changes; publish-time failures flow through the normal retry machinery.
func (e *Engine) PublishNow(ctx context.Context, id string) (*models.PostRequest, error) {
	post, err := e.posts.Get(ctx, id)
	if err != nil {
		return nil, ErrUnknownPost
	}
	if post.Status == models.StatusPublished || post.Status == models.StatusPublishing || post.Status == models.StatusCancelled {
		return nil, fmt.Errorf("post %s is %s", id, post.Status)
	}
	acct, err := e.accounts.Get(ctx, post.AccountID)
	if err != nil {
		return nil, ErrUnknownAccount
	}
	if !acct.IsActive {
		return nil, ErrInactiveAccount
	}
	if _, ok := e.adapters[post.Platform]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, post.Platform)
	}

	e.mu.Lock()
	if t, ok := e.retryTimers[id]; ok {
		t.Stop()
		delete(e.retryTimers, id)
	}
	e.removeFromQueueLocked(id)
	post.Status = models.StatusPublishing
	_ = e.posts.Update(ctx, post)
	e.mu.Unlock()

	e.emit(Event{Type: EventPostPublishing, Post: post})
	e.dispatch(ctx, post)
	return e.posts.Get(ctx, id)
}

// Start launches the scheduler loop: every tick it promotes due scheduled
// posts into the queue and publishes the queue head. The loop stops when ctx
// is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.stopLoop = cancel
	e.loopDone = make(chan struct{})
	done := e.loopDone
	e.mu.Unlock()

	e.logger.Printf("[Scheduler] started interval=%s", e.tick)
	go e.run(loopCtx, done)
	return nil
}

// Stop halts the loop and waits for the current sweep to finish. Pending
// retry timers survive a Stop; their posts simply wait in the queue until the
// next Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.stopLoop
	done := e.loopDone
	e.mu.Unlock()

	cancel()
	<-done
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Printf("[Scheduler] stopped err=%v", ctx.Err())
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

// Sweep runs one scheduler iteration outside the loop. Exported behavior for
// deterministic tests and for deployments driving the engine off an external
// timer.
func (e *Engine) Sweep(ctx context.Context) {
	e.sweep(ctx)
}

func (e *Engine) sweep(ctx context.Context) {
	e.promoteDue(ctx)
	e.drainOne(ctx)
}

// promoteDue appends due scheduled posts to the queue. Their status stays
// `scheduled` until they are actually dequeued; the queue alone decides
// dispatch order.
func (e *Engine) promoteDue(ctx context.Context) {
	due, err := e.posts.ListDueScheduled(ctx, e.now())
	if err != nil {
		e.logger.Printf("[Scheduler] promote sweep error err=%v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	promoted := 0
	e.mu.Lock()
	for _, p := range due {
		if _, queued := e.queued[p.ID]; queued {
			continue
		}
		e.enqueueLocked(p.ID)
		promoted++
	}
	e.mu.Unlock()
	if promoted > 0 {
		e.logger.Printf("[Scheduler] promoted=%d due=%d", promoted, len(due))
	}
}

// drainOne pops the queue head, marks it publishing and dispatches it.
// One post per sweep; FIFO.
func (e *Engine) drainOne(ctx context.Context) {
	var post *models.PostRequest
	e.mu.Lock()
	for len(e.queue) > 0 {
		id := e.queue[0]
		e.queue = e.queue[1:]
		delete(e.queued, id)
		p, err := e.posts.Get(ctx, id)
		if err != nil {
			continue
		}
		if p.Status != models.StatusPending && p.Status != models.StatusScheduled {
			continue
		}
		p.Status = models.StatusPublishing
		_ = e.posts.Update(ctx, p)
		post = p
		break
	}
	e.mu.Unlock()
	if post == nil {
		return
	}

	e.logger.Printf("[Scheduler] publishing postId=%s platform=%s attempt=%d", post.ID, post.Platform, post.RetryCount+1)
	e.emit(Event{Type: EventPostPublishing, Post: post})
	e.dispatch(ctx, post)
}

// dispatch performs one publish attempt for a post already in `publishing`.
func (e *Engine) dispatch(ctx context.Context, post *models.PostRequest) {
	acct, err := e.accounts.Get(ctx, post.AccountID)
	if err != nil {
		e.applyFailure(ctx, post.ID, "unknown_account", false)
		return
	}
	if !acct.IsActive {
		e.applyFailure(ctx, post.ID, "inactive_account", false)
		return
	}
	adapter, ok := e.adapters[post.Platform]
	if !ok {
		// Fatal configuration error: a post for a platform nobody registered.
		e.logger.Printf("[Scheduler] no_adapter postId=%s platform=%s", post.ID, post.Platform)
		e.applyFailure(ctx, post.ID, fmt.Sprintf("unsupported platform: %s", post.Platform), false)
		return
	}

	if e.limiter.IsLimited(post.Platform) {
		e.logger.Printf("[Scheduler] rate_limited postId=%s platform=%s remaining=0", post.ID, post.Platform)
		e.applyFailure(ctx, post.ID, errRateLimited, true)
		return
	}

	result, err := adapter.Publish(ctx, acct, post)
	if err != nil {
		// Adapter errors mean a malformed call, not a platform rejection.
		e.logger.Printf("[Scheduler] adapter_error postId=%s platform=%s err=%v", post.ID, post.Platform, err)
		e.applyFailure(ctx, post.ID, truncate(err.Error(), 400), false)
		return
	}
	// The request reached the platform, so it consumes quota either way.
	e.limiter.RecordAttempt(post.Platform)
	if !result.Success {
		e.applyFailure(ctx, post.ID, truncate(result.Error, 400), true)
		return
	}
	e.applySuccess(ctx, post.ID, result)
}

func (e *Engine) applySuccess(ctx context.Context, postID string, result models.PublishResult) {
	e.mu.Lock()
	post, err := e.posts.Get(ctx, postID)
	if err != nil {
		e.mu.Unlock()
		return
	}
	if post.Status == models.StatusCancelled {
		// Cancelled while the adapter call was in flight; the platform post
		// exists but the local record stays cancelled.
		e.mu.Unlock()
		e.logger.Printf("[Scheduler] result_discarded postId=%s reason=cancelled_in_flight platformPostId=%s", postID, result.PlatformPostID)
		return
	}
	now := e.now()
	post.Status = models.StatusPublished
	post.PublishedAt = &now
	post.PlatformPostID = &result.PlatformPostID
	post.Error = nil
	_ = e.posts.Update(ctx, post)
	e.mu.Unlock()

	e.logger.Printf("[Scheduler] published postId=%s platformPostId=%s url=%s", postID, result.PlatformPostID, result.URL)
	e.emit(Event{Type: EventPostPublished, Post: post, Result: &result})
}

// applyFailure records a failed attempt. Retryable failures below maxRetries
// get a deferred re-enqueue after an exponential backoff; everything else is
// terminal.
func (e *Engine) applyFailure(ctx context.Context, postID, reason string, retryable bool) {
	e.mu.Lock()
	post, err := e.posts.Get(ctx, postID)
	if err != nil {
		e.mu.Unlock()
		return
	}
	if post.Status == models.StatusCancelled {
		e.mu.Unlock()
		e.logger.Printf("[Scheduler] failure_discarded postId=%s reason=cancelled_in_flight", postID)
		return
	}
	post.Status = models.StatusFailed
	post.Error = &reason
	if retryable {
		post.RetryCount++
	}
	_ = e.posts.Update(ctx, post)

	scheduleRetry := retryable && post.RetryCount < post.MaxRetries
	var delay time.Duration
	if scheduleRetry {
		delay = backoffDelay(post.RetryCount)
		e.retryTimers[postID] = time.AfterFunc(delay, func() { e.requeueRetry(postID) })
	}
	e.mu.Unlock()

	if scheduleRetry {
		e.logger.Printf("[Scheduler] failed postId=%s retryCount=%d/%d retryIn=%s err=%s", postID, post.RetryCount, post.MaxRetries, delay, reason)
	} else {
		e.logger.Printf("[Scheduler] failed_terminal postId=%s retryCount=%d err=%s", postID, post.RetryCount, reason)
	}
	e.emit(Event{Type: EventPostFailed, Post: post})
}

// requeueRetry fires when a backoff delay elapses: the post goes back to
// pending and rejoins the queue tail. retryCount is untouched until the next
// failure.
func (e *Engine) requeueRetry(postID string) {
	ctx := context.Background()
	e.mu.Lock()
	delete(e.retryTimers, postID)
	post, err := e.posts.Get(ctx, postID)
	if err != nil || post.Status != models.StatusFailed {
		e.mu.Unlock()
		return
	}
	post.Status = models.StatusPending
	_ = e.posts.Update(ctx, post)
	e.enqueueLocked(postID)
	e.mu.Unlock()
	e.logger.Printf("[Scheduler] retry_requeued postId=%s retryCount=%d", postID, post.RetryCount)
}

// backoffDelay returns the wait before retry attempt k (1-indexed):
// min(60s * 2^k, 240s).
func backoffDelay(attempt int) time.Duration {
	d := time.Minute * time.Duration(1<<uint(attempt))
	if d > 4*time.Minute {
		d = 4 * time.Minute
	}
	return d
}

func (e *Engine) enqueueLocked(id string) {
	if _, ok := e.queued[id]; ok {
		return
	}
	e.queue = append(e.queue, id)
	e.queued[id] = struct{}{}
}

func (e *Engine) removeFromQueueLocked(id string) {
	if _, ok := e.queued[id]; !ok {
		return
	}
	delete(e.queued, id)
	for i, qid := range e.queue {
		if qid == id {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
