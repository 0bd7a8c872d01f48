package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"golang.org/x/time/rate"
)

type TwitterAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string // defaults to the public API; overridden in tests
}

func (a *TwitterAdapter) Platform() string { return models.PlatformTwitter }

func (a *TwitterAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformTwitter, account, post); err != nil {
		return models.PublishResult{}, err
	}
	base := a.BaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	payload := map[string]any{"text": captionFor(post)}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", base+"/2/tweets", strings.NewReader(string(body)))
	if err != nil {
		return models.PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := a.Client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("twitter_request_failed: %v", err)), nil
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[TwitterPublish] non_2xx accountId=%s status=%d body=%s", account.ID, res.StatusCode, truncate(string(b), 600))
		return failure(fmt.Sprintf("twitter_non_2xx status=%d body=%s", res.StatusCode, truncate(string(b), 400))), nil
	}

	// Shape: { data: { id, text } }
	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil || parsed.Data.ID == "" {
		return failure("twitter_missing_tweet_id"), nil
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: parsed.Data.ID,
		URL:            fmt.Sprintf("https://twitter.com/%s/status/%s", account.Username, parsed.Data.ID),
	}, nil
}
