package handler

import (
	"context"
	"net/http"

	"github.com/viewstodownloads/tiktok-connect/internal/api/request"
	"github.com/viewstodownloads/tiktok-connect/internal/api/response"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type publisher interface {
	Publish(ctx context.Context, in core.PublishInput) (*core.PublishResult, error)
}

type statusChecker interface {
	Check(ctx context.Context, userID, accountID, publishID string) (*model.PublishStatus, error)
}

// Publish handles direct posting and publish status checks.
type Publish struct {
	publisher publisher
	status    statusChecker
}

func NewPublish(publisher publisher, status statusChecker) *Publish {
	return &Publish{publisher: publisher, status: status}
}

// Create godoc
//
//	@Summary		Publish a video
//	@Description	Starts a pull-from-URL direct post on the given TikTok account. The returned publish_id is watched in the background until it reaches a terminal status.
//	@Tags			Publish
//	@Security		SessionAuth
//	@Param			body body request.Publish true "Publish details"
//	@Success		200 {object} core.PublishResult
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		422 {object} response.ErrorResponse
//	@Failure		429 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Router			/tiktok/publish [post]
func (h *Publish) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req request.Publish
	if err := request.Decode(r, &req); err != nil {
		response.WriteCodedError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	result, err := h.publisher.Publish(r.Context(), core.PublishInput{
		UserID:    uid,
		AccountID: req.AccountID,
		VideoURL:  req.VideoURL,
		ContentID: req.ContentID,
		PostInfo:  req.PostInfo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Status godoc
//
//	@Summary		Get publish status
//	@Description	Reports the current state of a publish job. accountId and publishId come from the query string on GET and the JSON body on POST. Jobs already in a terminal state are answered without calling TikTok.
//	@Tags			Publish
//	@Security		SessionAuth
//	@Param			accountId	query	string	true	"Connected account ID"
//	@Param			publishId	query	string	true	"Publish ID"
//	@Success		200 {object} model.PublishStatus
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Router			/tiktok/publish-status [get]
//	@Router			/tiktok/publish-status [post]
func (h *Publish) Status(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req request.PublishStatus
	var err error
	if r.Method == http.MethodGet {
		req.AccountID = r.URL.Query().Get("accountId")
		req.PublishID = r.URL.Query().Get("publishId")
		err = request.Validate(&req)
	} else {
		err = request.Decode(r, &req)
	}
	if err != nil {
		response.WriteCodedError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	st, err := h.status.Check(r.Context(), uid, req.AccountID, req.PublishID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, st)
}
