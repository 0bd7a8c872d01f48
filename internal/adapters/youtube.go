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

type YouTubeAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *log.Logger
	BaseURL string
}

func (a *YouTubeAdapter) Platform() string { return models.PlatformYouTube }

func (a *YouTubeAdapter) Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error) {
	if err := checkCall(models.PlatformYouTube, account, post); err != nil {
		return models.PublishResult{}, err
	}
	if firstMediaURL(post, "video") == "" {
		return failure("youtube requires a video attachment"), nil
	}
	base := a.BaseURL
	if base == "" {
		base = "https://www.googleapis.com/youtube/v3"
	}
	if err := waitLimiter(ctx, a.Limiter); err != nil {
		return failure(err.Error()), nil
	}

	title := post.Content.Text
	if post.Content.Title != nil && strings.TrimSpace(*post.Content.Title) != "" {
		title = strings.TrimSpace(*post.Content.Title)
	}
	description := ""
	if post.Content.Description != nil {
		description = *post.Content.Description
	}
	privacy := "public"
	if post.Options.IsPrivate {
		privacy = "private"
	}
	payload := map[string]any{
		"snippet": map[string]any{
			"title":       truncate(title, 100),
			"description": description,
			"tags":        post.Content.Hashtags,
		},
		"status": map[string]any{"privacyStatus": privacy},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", base+"/videos?part=snippet,status", strings.NewReader(string(body)))
	if err != nil {
		return models.PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := a.Client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("youtube_request_failed: %v", err)), nil
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		a.Logger.Printf("[YTPublish] non_2xx accountId=%s status=%d body=%s", account.ID, res.StatusCode, truncate(string(b), 600))
		return failure(fmt.Sprintf("youtube_non_2xx status=%d body=%s", res.StatusCode, truncate(string(b), 400))), nil
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil || parsed.ID == "" {
		return failure("youtube_missing_video_id"), nil
	}
	return models.PublishResult{
		Success:        true,
		PlatformPostID: parsed.ID,
		URL:            "https://www.youtube.com/watch?v=" + parsed.ID,
	}, nil
}
