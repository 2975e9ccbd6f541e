package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

func TestCreatorInfoGet(t *testing.T) {
	svc := &mockCreatorInfo{}
	h := NewCreatorInfo(svc)

	svc.On("Get", mock.Anything, "user-1", "acct-1").Return(&model.CreatorInfo{
		PrivacyLevelOptions:     []string{model.PrivacyPublicToEveryone, model.PrivacySelfOnly},
		MaxVideoPostDurationSec: 600,
		CreatorUsername:         "alice",
	}, nil)

	rec := httptest.NewRecorder()
	h.Get(rec, withUser(newRequest(http.MethodPost, "/api/tiktok/creator-info", map[string]string{"accountId": "acct-1"}), "user-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var info model.CreatorInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 600, info.MaxVideoPostDurationSec)
	assert.Equal(t, "alice", info.CreatorUsername)
}

func TestCreatorInfoGet_MissingAccountID(t *testing.T) {
	h := NewCreatorInfo(&mockCreatorInfo{})

	rec := httptest.NewRecorder()
	h.Get(rec, withUser(newRequest(http.MethodPost, "/api/tiktok/creator-info", map[string]string{}), "user-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatorInfoGet_Reauth(t *testing.T) {
	svc := &mockCreatorInfo{}
	h := NewCreatorInfo(svc)
	svc.On("Get", mock.Anything, "user-1", "acct-1").Return(nil, core.ErrReauthRequired)

	rec := httptest.NewRecorder()
	h.Get(rec, withUser(newRequest(http.MethodPost, "/api/tiktok/creator-info", map[string]string{"accountId": "acct-1"}), "user-1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeReauthRequired, decodeErrorResponse(rec)["code"])
}
