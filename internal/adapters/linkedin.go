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

type LinkedInAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string
}

func (a *LinkedInAdapter) Platform() string { return models.PlatformLinkedIn }

func (a *LinkedInAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformLinkedIn, account, post); err != nil {
		return models.PublishResult{}, err
	}
	base := a.BaseURL
	if base == "" {
		base = "https://api.linkedin.com"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	visibility := "PUBLIC"
	if post.Options.IsPrivate {
		visibility = "CONNECTIONS"
	}
	payload := map[string]any{
		"author":         "urn:li:person:" + account.ExternalAccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": captionFor(post)},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": visibility},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", base+"/v2/ugcPosts", strings.NewReader(string(body)))
	if err != nil {
		return models.PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	res, err := a.Client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("linkedin_request_failed: %v", err)), nil
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[LIPublish] non_2xx accountId=%s status=%d body=%s", account.ID, res.StatusCode, truncate(string(b), 600))
		return failure(fmt.Sprintf("linkedin_non_2xx status=%d body=%s", res.StatusCode, truncate(string(b), 400))), nil
	}

	// The created URN comes back in the X-RestLi-Id header; some responses also carry { id }.
	urn := strings.TrimSpace(res.Header.Get("X-RestLi-Id"))
	if urn == "" {
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(b, &parsed); err == nil {
			urn = parsed.ID
		}
	}
	if urn == "" {
		return failure("linkedin_missing_share_urn"), nil
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: urn,
		URL:            "https://www.linkedin.com/feed/update/" + urn,
	}, nil
}
