package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viewstodownloads/tiktok-connect/internal/api/request"
	"github.com/viewstodownloads/tiktok-connect/internal/api/response"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type accountLister interface {
	ListForUser(ctx context.Context, userID string) ([]model.ConnectedAccount, error)
}

type disconnecter interface {
	Disconnect(ctx context.Context, userID, accountID string) error
}

// Account lists and disconnects the caller's TikTok accounts.
type Account struct {
	accounts     accountLister
	disconnecter disconnecter
}

func NewAccount(accounts accountLister, d disconnecter) *Account {
	return &Account{accounts: accounts, disconnecter: d}
}

// List godoc
//
//	@Summary		List connected accounts
//	@Tags			Accounts
//	@Security		SessionAuth
//	@Success		200 {object} map[string][]model.ConnectedAccount
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/tiktok/accounts [get]
func (h *Account) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListForUser(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []model.ConnectedAccount{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Delete godoc
//
//	@Summary		Disconnect an account
//	@Description	Revokes the account's access token at TikTok (best effort) and deletes the stored account.
//	@Tags			Accounts
//	@Security		SessionAuth
//	@Param			id path string true "Connected account ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/tiktok/accounts/{id} [delete]
func (h *Account) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.disconnecter.Disconnect(r.Context(), uid, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
