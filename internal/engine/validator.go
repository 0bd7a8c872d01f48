package engine

import (
	"fmt"
	"unicode/utf8"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
	"github.com/PortNumber53/simple-publish-engine/internal/platforms"
)

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateContent checks content against a platform's limits. It accumulates
// every violation instead of short-circuiting so callers see all problems at
// once. A pure function: no engine state is touched.
func ValidateContent(platform string, content models.PostContent) ValidationResult {
	limits, ok := platforms.Lookup(platform)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("unknown platform: %s", platform)}}
	}

	var errs []string
	if utf8.RuneCountInString(content.Text) > limits.MaxTextLength {
		errs = append(errs, fmt.Sprintf("Text exceeds maximum length of %d characters", limits.MaxTextLength))
	}
	if len(content.Media) > limits.MaxMediaCount {
		errs = append(errs, fmt.Sprintf("Too many media attachments (maximum %d)", limits.MaxMediaCount))
	}
	if limits.RequiresMedia && len(content.Media) == 0 {
		errs = append(errs, fmt.Sprintf("%s requires at least one media attachment", platform))
	}
	if len(content.Hashtags) > limits.MaxHashtags {
		errs = append(errs, fmt.Sprintf("Too many hashtags (maximum %d)", limits.MaxHashtags))
	}
	if len(content.Mentions) > limits.MaxMentions {
		errs = append(errs, fmt.Sprintf("Too many mentions (maximum %d)", limits.MaxMentions))
	}
	for _, m := range content.Media {
		if !limits.SupportsMediaType(m.MimeType) {
			errs = append(errs, fmt.Sprintf("Media type %s is not supported by %s", m.MimeType, platform))
		}
		switch m.Type {
		case "video":
			if limits.MaxVideoSize > 0 && m.SizeBytes > limits.MaxVideoSize {
				errs = append(errs, fmt.Sprintf("Video size %s exceeds maximum of %s", humanSize(m.SizeBytes), humanSize(limits.MaxVideoSize)))
			}
		case "image", "gif":
			if limits.MaxImageSize > 0 && m.SizeBytes > limits.MaxImageSize {
				errs = append(errs, fmt.Sprintf("Image size %s exceeds maximum of %s", humanSize(m.SizeBytes), humanSize(limits.MaxImageSize)))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// humanSize renders a byte count using the largest 1024-based unit where the
// scaled value is still >= 1.
func humanSize(n int64) string {
	units := []string{"bytes", "KB", "MB", "GB"}
	size := float64(n)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", n, units[0])
	}
	return fmt.Sprintf("%.1f %s", size, units[idx])
}
