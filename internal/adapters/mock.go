package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

// MockAdapter is an in-process stand-in for a platform API. It is used by the
// engine tests and by dry-run deployments that should never hit a real network.
type MockAdapter struct {
	PlatformName string
	// Fn, when set, scripts the outcome per call.
	Fn func(account *models.Account, post *models.PostRequest) (models.PublishResult, error)

	mu    sync.Mutex
	calls int
}

func (m *MockAdapter) Platform() string { return m.PlatformName }

func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(m.PlatformName, account, post); err != nil {
		return models.PublishResult{}, err
	}
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	if m.Fn != nil {
		return m.Fn(account, post)
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: fmt.Sprintf("%s_mock_%d", m.PlatformName, n),
		URL:            fmt.Sprintf("https://example.invalid/%s/%d", m.PlatformName, n),
	}, nil
}

// NewMockRegistry returns a full platform->adapter map of mocks, keyed the
// same way as NewRegistry.
func NewMockRegistry() map[string]Adapter {
	out := make(map[string]Adapter)
	for _, p := range []string{
		models.PlatformTwitter, models.PlatformFacebook, models.PlatformInstagram,
		models.PlatformLinkedIn, models.PlatformTikTok, models.PlatformYouTube,
	} {
		out[p] = &MockAdapter{PlatformName: p}
	}
	return out
}
