package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"golang.org/x/time/rate"
)

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// checkCall guards against programmer errors. Anything caught here is a bug in
// the caller, not an ordinary publish failure.
func checkCall(platform string, account *models.Account, post *models.PostRequest) error {
	if account == nil {
		return fmt.Errorf("%s: account is nil", platform)
	}
	if post == nil {
		return fmt.Errorf("%s: post is nil", platform)
	}
	if account.Platform != platform {
		return fmt.Errorf("%s: account belongs to platform %q", platform, account.Platform)
	}
	return nil
}

func waitLimiter(ctx context.Context, lim *rate.Limiter) error {
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

func failure(reason string) models.PublishResult {
	return models.PublishResult{Success: false, Error: reason}
}

// captionFor flattens text + hashtags into the caption string most platforms take.
func captionFor(post *models.PostRequest) string {
	caption := strings.TrimSpace(post.Content.Text)
	if len(post.Content.Hashtags) == 0 {
		return caption
	}
	tags := make([]string, 0, len(post.Content.Hashtags))
	for _, h := range post.Content.Hashtags {
		h = strings.TrimSpace(strings.TrimPrefix(h, "#"))
		if h != "" {
			tags = append(tags, "#"+h)
		}
	}
	if len(tags) == 0 {
		return caption
	}
	if caption == "" {
		return strings.Join(tags, " ")
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}

func firstMediaURL(post *models.PostRequest, mediaType string) string {
	for _, m := range post.Content.Media {
		if mediaType == "" || m.Type == mediaType {
			return m.URL
		}
	}
	return ""
}
