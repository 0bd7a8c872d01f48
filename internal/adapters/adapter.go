package adapters

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"golang.org/x/time/rate"
)

// Adapter performs the actual network publish call for one platform.
//
// Ordinary publish failures (API rejected the content, auth expired, network
// error) are reported via PublishResult.Success=false plus Error. The Go error
// return is reserved for malformed calls (nil account, wrong platform).
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, account *models.Account, post *models.PostRequest) (models.PublishResult, error)
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func DefaultRateLimits() map[string]RateLimitConfig {
	// Conservative defaults; override via env per platform to match each network's quota policy.
	return map[string]RateLimitConfig{
		"twitter":   {RequestsPerSecond: 1, Burst: 1},
		"facebook":  {RequestsPerSecond: 1, Burst: 2},
		"instagram": {RequestsPerSecond: 1, Burst: 2},
		"linkedin":  {RequestsPerSecond: 1, Burst: 2},
		"tiktok":    {RequestsPerSecond: 1, Burst: 2},
		"youtube":   {RequestsPerSecond: 3, Burst: 3},
	}
}

func rateLimitFromEnv(platform string, def RateLimitConfig) RateLimitConfig {
	// Env vars, e.g.:
	// PUBLISH_TWITTER_RPS=0.5
	// PUBLISH_TWITTER_BURST=2
	prefix := "PUBLISH_" + upper(platform) + "_"
	if v := os.Getenv(prefix + "RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			def.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(prefix + "BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			def.Burst = n
		}
	}
	return def
}

func limiterFor(platform string) *rate.Limiter {
	cfg := rateLimitFromEnv(platform, DefaultRateLimits()[platform])
	if cfg.RequestsPerSecond <= 0 {
		cfg = RateLimitConfig{RequestsPerSecond: 1, Burst: 1}
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// NewRegistry builds one adapter per supported platform, each with its own
// request limiter. The client and logger are shared; nil means defaults.
func NewRegistry(client *http.Client, logger *log.Logger) map[string]Adapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return map[string]Adapter{
		models.PlatformTwitter:   &TwitterAdapter{Client: client, Limiter: limiterFor("twitter"), Logger: logger},
		models.PlatformFacebook:  &FacebookAdapter{Client: client, Limiter: limiterFor("facebook"), Logger: logger},
		models.PlatformInstagram: &InstagramAdapter{Client: client, Limiter: limiterFor("instagram"), Logger: logger},
		models.PlatformLinkedIn:  &LinkedInAdapter{Client: client, Limiter: limiterFor("linkedin"), Logger: logger},
		models.PlatformTikTok:    &TikTokAdapter{Client: client, Limiter: limiterFor("tiktok"), Logger: logger},
		models.PlatformYouTube:   &YouTubeAdapter{Client: client, Limiter: limiterFor("youtube"), Logger: logger},
	}
}

func upper(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			out = append(out, c-32)
		} else if c == '-' {
			out = append(out, '_')
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}
