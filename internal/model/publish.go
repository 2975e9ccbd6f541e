package model

import "time"

// Privacy levels accepted by the publish endpoint.
const (
	PrivacyPublicToEveryone    = "PUBLIC_TO_EVERYONE"
	PrivacyMutualFollowFriends = "MUTUAL_FOLLOW_FRIENDS"
	PrivacyFollowerOfCreator   = "FOLLOWER_OF_CREATOR"
	PrivacySelfOnly            = "SELF_ONLY"
)

// PrivacyOpenness orders privacy levels from most to least open.
var PrivacyOpenness = []string{
	PrivacyPublicToEveryone,
	PrivacyFollowerOfCreator,
	PrivacyMutualFollowFriends,
	PrivacySelfOnly,
}

// PostInfo is the client-supplied post settings.
type PostInfo struct {
	Title            string `json:"title" validate:"required,max=2200"`
	PrivacyLevel     string `json:"privacy_level" validate:"required,oneof=PUBLIC_TO_EVERYONE MUTUAL_FOLLOW_FRIENDS FOLLOWER_OF_CREATOR SELF_ONLY"`
	DisableComment   bool   `json:"disable_comment"`
	DisableDuet      bool   `json:"disable_duet"`
	DisableStitch    bool   `json:"disable_stitch"`
	IsBrandedContent bool   `json:"is_branded_content"`
	IsBrandOrganic   bool   `json:"is_brand_organic"`
}

// Promotional reports whether the post discloses branded or organic promotion.
func (p *PostInfo) Promotional() bool {
	return p.IsBrandedContent || p.IsBrandOrganic
}

// Publish job statuses.
const (
	PublishStatusSent           = "sent"
	PublishStatusProcessing     = "processing"
	PublishStatusPublished      = "published"
	PublishStatusFailed         = "failed"
	PublishStatusReauthRequired = "reauth_required"
	PublishStatusTimedOut       = "timed_out"
)

// IsTerminalPublishStatus reports whether no further polls are needed.
func IsTerminalPublishStatus(status string) bool {
	switch status {
	case PublishStatusPublished, PublishStatusFailed, PublishStatusReauthRequired, PublishStatusTimedOut:
		return true
	}
	return false
}

type PublishJob struct {
	PublishID  string    `json:"publish_id" db:"publish_id"`
	AccountID  string    `json:"account_id" db:"account_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ContentID  *string   `json:"content_id,omitempty" db:"content_id"`
	Status     string    `json:"status" db:"status"`
	FailReason *string   `json:"fail_reason,omitempty" db:"fail_reason"`
	Attempts   int       `json:"attempts" db:"attempts"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// PublishStatus is the mapped result of one status poll.
type PublishStatus struct {
	PublishID      string `json:"publish_id"`
	Status         string `json:"status"`
	ProviderStatus string `json:"provider_status,omitempty"`
	FailReason     string `json:"fail_reason,omitempty"`
	ProfileURL     string `json:"profile_url,omitempty"`
}

// Terminal reports whether the status ends the job.
func (s *PublishStatus) Terminal() bool {
	return IsTerminalPublishStatus(s.Status)
}

// CreatorInfo is what the creator-info query returns for the posting account.
type CreatorInfo struct {
	PrivacyLevelOptions     []string `json:"privacy_level_options"`
	CommentDisabled         bool     `json:"comment_disabled"`
	DuetDisabled            bool     `json:"duet_disabled"`
	StitchDisabled          bool     `json:"stitch_disabled"`
	MaxVideoPostDurationSec int      `json:"max_video_post_duration_sec"`
	CreatorUsername         string   `json:"creator_username,omitempty"`
	CreatorNickname         string   `json:"creator_nickname,omitempty"`
	CreatorAvatarURL        string   `json:"creator_avatar_url,omitempty"`
}

// WatchPublishParams is the input of the publish watch workflow.
type WatchPublishParams struct {
	PublishID   string        `json:"publish_id"`
	Interval    time.Duration `json:"interval"`
	MaxAttempts int           `json:"max_attempts"`
}
