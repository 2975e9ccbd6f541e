package request

import "github.com/viewstodownloads/tiktok-connect/internal/model"

type Publish struct {
	AccountID string         `json:"accountId" validate:"required"`
	VideoURL  string         `json:"videoUrl" validate:"required,url"`
	ContentID *string        `json:"contentId,omitempty"`
	PostInfo  model.PostInfo `json:"postInfo"`
}

type PublishStatus struct {
	AccountID string `json:"accountId" validate:"required"`
	PublishID string `json:"publishId" validate:"required"`
}

type CreatorInfo struct {
	AccountID string `json:"accountId" validate:"required"`
}
