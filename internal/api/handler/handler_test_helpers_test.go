package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	mw "github.com/viewstodownloads/tiktok-connect/internal/api/middleware"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withUser attaches an application session for userID.
func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(mw.WithSession(r.Context(), &model.Session{UserID: userID}))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// ---------- service mocks ----------

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Begin() (*core.AuthRequest, error) {
	args := m.Called()
	req, _ := args.Get(0).(*core.AuthRequest)
	return req, args.Error(1)
}

func (m *mockConnector) HandleCallback(ctx context.Context, in core.CallbackInput) (*core.CallbackOutcome, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*core.CallbackOutcome)
	return out, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, in core.PublishInput) (*core.PublishResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*core.PublishResult)
	return res, args.Error(1)
}

type mockStatusChecker struct {
	mock.Mock
}

func (m *mockStatusChecker) Check(ctx context.Context, userID, accountID, publishID string) (*model.PublishStatus, error) {
	args := m.Called(ctx, userID, accountID, publishID)
	st, _ := args.Get(0).(*model.PublishStatus)
	return st, args.Error(1)
}

type mockCreatorInfo struct {
	mock.Mock
}

func (m *mockCreatorInfo) Get(ctx context.Context, userID, accountID string) (*model.CreatorInfo, error) {
	args := m.Called(ctx, userID, accountID)
	info, _ := args.Get(0).(*model.CreatorInfo)
	return info, args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) ListForUser(ctx context.Context, userID string) ([]model.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	accts, _ := args.Get(0).([]model.ConnectedAccount)
	return accts, args.Error(1)
}

func (m *mockAccounts) Disconnect(ctx context.Context, userID, accountID string) error {
	return m.Called(ctx, userID, accountID).Error(0)
}
