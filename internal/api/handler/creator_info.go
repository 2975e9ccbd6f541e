package handler

import (
	"context"
	"net/http"

	"github.com/viewstodownloads/tiktok-connect/internal/api/request"
	"github.com/viewstodownloads/tiktok-connect/internal/api/response"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type creatorInfoGetter interface {
	Get(ctx context.Context, userID, accountID string) (*model.CreatorInfo, error)
}

type CreatorInfo struct {
	svc creatorInfoGetter
}

func NewCreatorInfo(svc creatorInfoGetter) *CreatorInfo {
	return &CreatorInfo{svc: svc}
}

// Get godoc
//
//	@Summary		Get creator info
//	@Description	Returns the posting constraints of the account's creator: allowed privacy levels, disabled interactions and maximum video duration.
//	@Tags			Creator
//	@Security		SessionAuth
//	@Param			body body request.CreatorInfo true "Account to query"
//	@Success		200 {object} model.CreatorInfo
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Router			/tiktok/creator-info [post]
func (h *CreatorInfo) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req request.CreatorInfo
	if err := request.Decode(r, &req); err != nil {
		response.WriteCodedError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	info, err := h.svc.Get(r.Context(), uid, req.AccountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}
