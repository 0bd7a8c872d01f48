package platforms

import (
	"os"
	"strconv"
)

// Limits is the static capability/constraint record for one platform.
// Records are constants; they are never mutated at runtime.
type Limits struct {
	MaxTextLength       int
	MaxMediaCount       int
	SupportedMediaTypes []string // MIME types
	MaxVideoSize        int64    // bytes
	MaxImageSize        int64    // bytes
	MaxHashtags         int
	MaxMentions         int
	RequiresMedia       bool
}

const (
	mb int64 = 1024 * 1024
	gb int64 = 1024 * mb
)

var limitsByPlatform = map[string]Limits{
	"twitter": {
		MaxTextLength:       280,
		MaxMediaCount:       4,
		SupportedMediaTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "video/mp4"},
		MaxVideoSize:        512 * mb,
		MaxImageSize:        5 * mb,
		MaxHashtags:         10,
		MaxMentions:         10,
	},
	"facebook": {
		MaxTextLength:       63206,
		MaxMediaCount:       10,
		SupportedMediaTypes: []string{"image/jpeg", "image/png", "image/gif", "video/mp4", "video/quicktime"},
		MaxVideoSize:        4 * gb,
		MaxImageSize:        10 * mb,
		MaxHashtags:         30,
		MaxMentions:         50,
	},
	"instagram": {
		MaxTextLength:       2200,
		MaxMediaCount:       10,
		SupportedMediaTypes: []string{"image/jpeg", "image/png", "video/mp4", "video/quicktime"},
		MaxVideoSize:        650 * mb,
		MaxImageSize:        8 * mb,
		MaxHashtags:         30,
		MaxMentions:         20,
		RequiresMedia:       true,
	},
	"linkedin": {
		MaxTextLength:       3000,
		MaxMediaCount:       9,
		SupportedMediaTypes: []string{"image/jpeg", "image/png", "image/gif", "video/mp4"},
		MaxVideoSize:        5 * gb,
		MaxImageSize:        10 * mb,
		MaxHashtags:         30,
		MaxMentions:         20,
	},
	"tiktok": {
		MaxTextLength:       2200,
		MaxMediaCount:       1,
		SupportedMediaTypes: []string{"video/mp4", "video/quicktime", "video/webm"},
		MaxVideoSize:        4 * gb,
		MaxImageSize:        0,
		MaxHashtags:         20,
		MaxMentions:         10,
		RequiresMedia:       true,
	},
	"youtube": {
		MaxTextLength:       5000,
		MaxMediaCount:       1,
		SupportedMediaTypes: []string{"video/mp4", "video/quicktime", "video/webm", "video/x-msvideo"},
		MaxVideoSize:        256 * gb,
		MaxImageSize:        2 * mb,
		MaxHashtags:         15,
		MaxMentions:         0,
		RequiresMedia:       true,
	},
}

// Lookup returns the limits record for a platform, or ok=false for an unknown one.
func Lookup(platform string) (Limits, bool) {
	l, ok := limitsByPlatform[platform]
	return l, ok
}

// Names lists every platform that has a limits record, in no particular order.
func Names() []string {
	out := make([]string, 0, len(limitsByPlatform))
	for name := range limitsByPlatform {
		out = append(out, name)
	}
	return out
}

func (l Limits) SupportsMediaType(mime string) bool {
	for _, m := range l.SupportedMediaTypes {
		if m == mime {
			return true
		}
	}
	return false
}

// DefaultHourlyCeiling is used for platforms without an explicit publish ceiling.
const DefaultHourlyCeiling = 50

var hourlyCeilings = map[string]int{
	"twitter":   50,
	"facebook":  100,
	"instagram": 25,
	"linkedin":  30,
	"tiktok":    10,
	"youtube":   5,
}

// HourlyCeiling returns how many publish attempts per rolling hour a platform
// allows. Override per platform via env, e.g. PUBLISH_TIKTOK_HOURLY_MAX=20.
func HourlyCeiling(platform string) int {
	ceiling, ok := hourlyCeilings[platform]
	if !ok {
		ceiling = DefaultHourlyCeiling
	}
	if v := os.Getenv("PUBLISH_" + upper(platform) + "_HOURLY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ceiling = n
		}
	}
	return ceiling
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
