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

type InstagramAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string
}

func (a *InstagramAdapter) Platform() string { return models.PlatformInstagram }

// Publish creates a media container for the first image attachment, then
// publishes it. Instagram has no text-only posts, so a post without media is
// rejected here even though the validator already checks it.
func (a *InstagramAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformInstagram, account, post); err != nil {
		return models.PublishResult{}, err
	}
	if len(post.Content.Media) == 0 {
		return failure("instagram requires at least one media attachment"), nil
	}
	base := a.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	// Step 1: media container.
	form := url.Values{}
	form.Set("caption", captionFor(post))
	form.Set("access_token", account.AccessToken)
	if u := firstMediaURL(post, "video"); u != "" {
		form.Set("media_type", "REELS")
		form.Set("video_url", u)
	} else {
		form.Set("image_url", firstMediaURL(post, ""))
	}
	containerID, ferr := a.graphCall(ctx, fmt.Sprintf("%s/%s/media", base, account.ExternalAccountID), form)
	if ferr != "" {
		return failure(ferr), nil
	}

	// Step 2: publish the container.
	pub := url.Values{}
	pub.Set("creation_id", containerID)
	pub.Set("access_token", account.AccessToken)
	mediaID, ferr := a.graphCall(ctx, fmt.Sprintf("%s/%s/media_publish", base, account.ExternalAccountID), pub)
	if ferr != "" {
		return failure(ferr), nil
	}

	return models.PublishResult{
		Success:        true,
		PlatformPostID: mediaID,
		URL:            "https://www.instagram.com/p/" + mediaID,
		Metadata:       map[string]string{"containerId": containerID},
	}, nil
}

// graphCall POSTs a form to the Graph API and returns the created object id,
// or a non-empty failure reason.
func (a *InstagramAdapter) graphCall(ctx context.Context, endpoint string, form url.Values) (string, string) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Sprintf("instagram_request_build_failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.Client.Do(req)
	if err != nil {
		return "", fmt.Sprintf("instagram_request_failed: %v", err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[IGPublish] non_2xx status=%d body=%s", res.StatusCode, truncate(string(b), 600))
		return "", fmt.Sprintf("instagram_non_2xx status=%d msg=%s", res.StatusCode, extractGraphError(b))
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil || parsed.ID == "" {
		return "", "instagram_missing_object_id"
	}
	return parsed.ID, ""
}
