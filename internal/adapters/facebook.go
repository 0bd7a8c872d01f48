package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"golang.org/x/time/rate"
)

type FacebookAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string
}

func (a *FacebookAdapter) Platform() string { return models.PlatformFacebook }

func (a *FacebookAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformFacebook, account, post); err != nil {
		return models.PublishResult{}, err
	}
	base := a.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	// Page feed post. Photos/videos attach via their URL when present.
	form := url.Values{}
	form.Set("message", captionFor(post))
	form.Set("access_token", account.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/feed", base, account.ExternalAccountID)
	if u := firstMediaURL(post, "image"); u != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", base, account.ExternalAccountID)
		form.Set("url", u)
		form.Set("caption", captionFor(post))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return models.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.Client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("facebook_request_failed: %v", err)), nil
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[FBPublish] non_2xx accountId=%s status=%d body=%s", account.ID, res.StatusCode, truncate(string(b), 600))
		return failure(fmt.Sprintf("facebook_non_2xx status=%d msg=%s", res.StatusCode, extractGraphError(b))), nil
	}

	// Shape: { id } for feed posts, { id, post_id } for photos.
	var parsed struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil {
		return failure("facebook_invalid_response"), nil
	}
	postID := parsed.PostID
	if postID == "" {
		postID = parsed.ID
	}
	if postID == "" {
		return failure("facebook_missing_post_id"), nil
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: postID,
		URL:            "https://www.facebook.com/" + postID,
	}, nil
}

func extractGraphError(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return truncate(parsed.Error.Message, 400)
	}
	return truncate(string(body), 400)
}
