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

type TikTokAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string
}

func (a *TikTokAdapter) Platform() string { return models.PlatformTikTok }

func (a *TikTokAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformTikTok, account, post); err != nil {
		return models.PublishResult{}, err
	}
	// TikTok only takes video posts; re-checked here even though the validator
	// rejects media-less posts upstream.
	videoURL := firstMediaURL(post, "video")
	if videoURL == "" {
		return failure("tiktok requires a video attachment"), nil
	}
	base := a.BaseURL
	if base == "" {
		base = "https://open.tiktokapis.com"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	privacy := "PUBLIC_TO_EVERYONE"
	if post.Options.IsPrivate {
		privacy = "SELF_ONLY"
	}
	payload := map[string]any{
		"post_info": map[string]any{
			"title":           captionFor(post),
			"privacy_level":   privacy,
			"disable_comment": !post.Options.AllowComments,
		},
		"source_info": map[string]any{
			"source":    "PULL_FROM_URL",
			"video_url": videoURL,
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", base+"/v2/post/publish/video/init/", strings.NewReader(string(body)))
	if err != nil {
		return models.PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := a.Client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("tiktok_request_failed: %v", err)), nil
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[TTPublish] non_2xx accountId=%s status=%d body=%s", account.ID, res.StatusCode, truncate(string(b), 600))
		return failure(fmt.Sprintf("tiktok_non_2xx status=%d body=%s", res.StatusCode, truncate(string(b), 400))), nil
	}

	// Shape: { data: { publish_id }, error: { code, message } }
	var parsed struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil {
		return failure("tiktok_invalid_response"), nil
	}
	if parsed.Error.Code != "" && parsed.Error.Code != "ok" {
		return failure(fmt.Sprintf("tiktok_error code=%s msg=%s", parsed.Error.Code, truncate(parsed.Error.Message, 300))), nil
	}
	if parsed.Data.PublishID == "" {
		return failure("tiktok_missing_publish_id"), nil
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: parsed.Data.PublishID,
		Metadata:       map[string]string{"source": "PULL_FROM_URL"},
	}, nil
}
