package models

import "time"

// Platform names accepted by the engine. Adapters are registered under these keys.
const (
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
)

// Post lifecycle statuses. published, cancelled and exhausted failed are terminal.
const (
	StatusPending    = "pending"
	StatusScheduled  = "scheduled"
	StatusPublishing = "publishing"
	StatusPublished  = "published"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

type Account struct {
	ID                string            `json:"id"`
	Platform          string            `json:"platform"`
	ExternalAccountID string            `json:"externalAccountId"`
	Username          string            `json:"username"`
	DisplayName       string            `json:"displayName,omitempty"`
	AccessToken       string            `json:"-"`
	RefreshToken      string            `json:"-"`
	TokenExpiresAt    *time.Time        `json:"tokenExpiresAt,omitempty"`
	IsActive          bool              `json:"isActive"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// AccountPatch carries partial updates for an account. Nil fields are left untouched.
type AccountPatch struct {
	Username       *string           `json:"username,omitempty"`
	DisplayName    *string           `json:"displayName,omitempty"`
	AccessToken    *string           `json:"accessToken,omitempty"`
	RefreshToken   *string           `json:"refreshToken,omitempty"`
	TokenExpiresAt *time.Time        `json:"tokenExpiresAt,omitempty"`
	IsActive       *bool             `json:"isActive,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type MediaAttachment struct {
	Type         string  `json:"type"` // image|video|gif|audio
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
	AltText      *string `json:"altText,omitempty"`
	Caption      *string `json:"caption,omitempty"`
	MimeType     string  `json:"mimeType"`
	SizeBytes    int64   `json:"sizeBytes"`
	Width        *int    `json:"width,omitempty"`
	Height       *int    `json:"height,omitempty"`
	DurationSec  *int    `json:"durationSec,omitempty"`
}

type PostContent struct {
	Text        string            `json:"text"`
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Media       []MediaAttachment `json:"media,omitempty"`
	Hashtags    []string          `json:"hashtags,omitempty"`
	Mentions    []string          `json:"mentions,omitempty"`
}

type PostOptions struct {
	ScheduledFor       *time.Time `json:"scheduledFor,omitempty"`
	PublishImmediately bool       `json:"publishImmediately,omitempty"`
	IsDraft            bool       `json:"isDraft,omitempty"`
	IsPrivate          bool       `json:"isPrivate,omitempty"`
	AllowComments      bool       `json:"allowComments,omitempty"`
	CrossPostTo        []string   `json:"crossPostTo,omitempty"`
}

type PostRequest struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	// Platform is denormalized from the account at creation time so the post
	// stays publishable even if the account record changes underneath it.
	Platform       string      `json:"platform"`
	Content        PostContent `json:"content"`
	Options        PostOptions `json:"options"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	PublishedAt    *time.Time  `json:"publishedAt,omitempty"`
	PlatformPostID *string     `json:"platformPostId,omitempty"`
	Error          *string     `json:"error,omitempty"`
	RetryCount     int         `json:"retryCount"`
	MaxRetries     int         `json:"maxRetries"`
}

// PublishResult is what a platform adapter reports back for one publish call.
// Ordinary API failures come back as Success=false, not as a Go error.
type PublishResult struct {
	Success        bool              `json:"success"`
	PlatformPostID string            `json:"platformPostId,omitempty"`
	URL            string            `json:"url,omitempty"`
	Error          string            `json:"error,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
