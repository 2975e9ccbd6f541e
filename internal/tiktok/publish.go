package tiktok

import (
	"context"
	"fmt"
	"net/http"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

const (
	SourcePullFromURL = "PULL_FROM_URL"
	PostModeDirect    = "DIRECT_POST"
)

// Provider-side publish statuses.
const (
	StatusProcessingUpload   = "PROCESSING_UPLOAD"
	StatusProcessingDownload = "PROCESSING_DOWNLOAD"
	StatusProcessing         = "PROCESSING"
	StatusPendingConfirm     = "PENDING_CONFIRMATION"
	StatusSendToUserInbox    = "SEND_TO_USER_INBOX"
	StatusPublishComplete    = "PUBLISH_COMPLETE"
	StatusPublished          = "PUBLISHED"
	StatusFailed             = "FAILED"
)

// PublishPostInfo is post_info as the provider names its fields.
type PublishPostInfo struct {
	Title              string `json:"title"`
	PrivacyLevel       string `json:"privacy_level"`
	DisableComment     bool   `json:"disable_comment"`
	DisableDuet        bool   `json:"disable_duet"`
	DisableStitch      bool   `json:"disable_stitch"`
	BrandContentToggle bool   `json:"brand_content_toggle"`
	BrandOrganicToggle bool   `json:"brand_organic_toggle"`
}

type SourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type PublishRequest struct {
	PostInfo   PublishPostInfo `json:"post_info"`
	SourceInfo SourceInfo      `json:"source_info"`
	PostMode   string          `json:"post_mode"`
}

// NewPublishRequest maps client post settings onto a pull-from-URL direct post.
func NewPublishRequest(videoURL string, info model.PostInfo) PublishRequest {
	return PublishRequest{
		PostInfo: PublishPostInfo{
			Title:              info.Title,
			PrivacyLevel:       info.PrivacyLevel,
			DisableComment:     info.DisableComment,
			DisableDuet:        info.DisableDuet,
			DisableStitch:      info.DisableStitch,
			BrandContentToggle: info.IsBrandedContent,
			BrandOrganicToggle: info.IsBrandOrganic,
		},
		SourceInfo: SourceInfo{Source: SourcePullFromURL, VideoURL: videoURL},
		PostMode:   PostModeDirect,
	}
}

type publishInitData struct {
	PublishID string `json:"publish_id" validate:"required"`
}

// InitPublish starts a publish job and returns its publish_id.
func (c *Client) InitPublish(ctx context.Context, accessToken string, req PublishRequest) (string, error) {
	var data publishInitData
	if err := c.doAPI(ctx, "publish_init", http.MethodPost, c.baseURL+publishInitPath, accessToken, req, &data); err != nil {
		return "", fmt.Errorf("init publish: %w", err)
	}
	return data.PublishID, nil
}

// StatusResponse is the provider's view of a publish job.
type StatusResponse struct {
	Status          string  `json:"status" validate:"required"`
	FailReason      string  `json:"fail_reason"`
	PublicPostIDs   []int64 `json:"publicaly_available_post_id"`
	UploadedBytes   int64   `json:"uploaded_bytes"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
}

// FetchPublishStatus polls the status of a publish job.
func (c *Client) FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*StatusResponse, error) {
	var data StatusResponse
	payload := map[string]string{"publish_id": publishID}
	if err := c.doAPI(ctx, "publish_status", http.MethodPost, c.baseURL+statusFetchPath, accessToken, payload, &data); err != nil {
		return nil, fmt.Errorf("fetch publish status: %w", err)
	}
	return &data, nil
}

type creatorInfoData struct {
	PrivacyLevelOptions     []string `json:"privacy_level_options" validate:"required,min=1"`
	CommentDisabled         bool     `json:"comment_disabled"`
	DuetDisabled            bool     `json:"duet_disabled"`
	StitchDisabled          bool     `json:"stitch_disabled"`
	MaxVideoPostDurationSec int      `json:"max_video_post_duration_sec"`
	CreatorUsername         string   `json:"creator_username"`
	CreatorNickname         string   `json:"creator_nickname"`
	CreatorAvatarURL        string   `json:"creator_avatar_url"`
}

// QueryCreatorInfo returns the posting constraints for the token's owner.
func (c *Client) QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorInfo, error) {
	var data creatorInfoData
	if err := c.doAPI(ctx, "creator_info", http.MethodPost, c.baseURL+creatorInfoPath, accessToken, map[string]any{}, &data); err != nil {
		return nil, fmt.Errorf("query creator info: %w", err)
	}
	return &model.CreatorInfo{
		PrivacyLevelOptions:     data.PrivacyLevelOptions,
		CommentDisabled:         data.CommentDisabled,
		DuetDisabled:            data.DuetDisabled,
		StitchDisabled:          data.StitchDisabled,
		MaxVideoPostDurationSec: data.MaxVideoPostDurationSec,
		CreatorUsername:         data.CreatorUsername,
		CreatorNickname:         data.CreatorNickname,
		CreatorAvatarURL:        data.CreatorAvatarURL,
	}, nil
}
