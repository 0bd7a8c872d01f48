package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAccount means the account id does not resolve.
	ErrUnknownAccount = errors.New("unknown_account")
	// ErrInactiveAccount means the account exists but is deactivated.
	ErrInactiveAccount = errors.New("inactive_account")
	// ErrUnknownPost means the post id does not resolve.
	ErrUnknownPost = errors.New("unknown_post")
	// ErrUnsupportedPlatform means no adapter (or limits record) exists for the
	// platform. This is a configuration error, never retried.
	ErrUnsupportedPlatform = errors.New("unsupported_platform")
	// ErrAlreadyRunning is returned by Start when the scheduler loop is live.
	ErrAlreadyRunning = errors.New("scheduler_already_running")
)

// errRateLimited is the publish failure recorded when the hourly platform
// quota is exhausted. It is retryable and counts against retryCount.
const errRateLimited = "rate limit exceeded"

// ValidationError carries every limit violation found in one pass, so the
// caller sees all problems at once.
type ValidationError struct {
	Platform string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid content for %s: %s", e.Platform, strings.Join(e.Problems, "; "))
}
