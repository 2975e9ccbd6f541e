package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "account not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "account not found"}, body)
}

func TestWriteCodedError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCodedError(rec, http.StatusUnauthorized, "REAUTH_REQUIRED", "reconnect your TikTok account")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REAUTH_REQUIRED", body.Code)
	assert.Equal(t, "reconnect your TikTok account", body.Error)
}
