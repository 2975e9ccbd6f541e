package core

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/viewstodownloads/tiktok-connect/internal/crypto"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Mock Provider ----------

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) AuthorizeURL(state, codeChallenge string) (string, error) {
	args := m.Called(state, codeChallenge)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.Token, error) {
	args := m.Called(ctx, code, codeVerifier)
	tok, _ := args.Get(0).(*model.Token)
	return tok, args.Error(1)
}

func (m *mockProvider) RefreshToken(ctx context.Context, refreshToken string) (*model.Token, error) {
	args := m.Called(ctx, refreshToken)
	tok, _ := args.Get(0).(*model.Token)
	return tok, args.Error(1)
}

func (m *mockProvider) RevokeToken(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockProvider) FetchUser(ctx context.Context, accessToken string) (*model.Profile, error) {
	args := m.Called(ctx, accessToken)
	p, _ := args.Get(0).(*model.Profile)
	return p, args.Error(1)
}

func (m *mockProvider) InitPublish(ctx context.Context, accessToken string, req tiktok.PublishRequest) (string, error) {
	args := m.Called(ctx, accessToken, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*tiktok.StatusResponse, error) {
	args := m.Called(ctx, accessToken, publishID)
	resp, _ := args.Get(0).(*tiktok.StatusResponse)
	return resp, args.Error(1)
}

func (m *mockProvider) QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorInfo, error) {
	args := m.Called(ctx, accessToken)
	info, _ := args.Get(0).(*model.CreatorInfo)
	return info, args.Error(1)
}

// ---------- Fixtures ----------

var testKey = bytes.Repeat([]byte{7}, 32)

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func errRow(err error) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return err }}
}

func testAccount(expiresIn time.Duration) model.ConnectedAccount {
	now := time.Now()
	return model.ConnectedAccount{
		ID:                "acct-1",
		UserID:            "user-1",
		Provider:          model.ProviderTikTok,
		ProviderAccountID: "u1",
		Username:          "alice",
		DisplayName:       "Alice",
		AccessToken:       "a1",
		RefreshToken:      "r1",
		TokenExpiresAt:    now.Add(expiresIn),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// accountRow returns a row that scans a as the store would read it back.
func accountRow(a model.ConnectedAccount) *mockRow {
	access, err := crypto.Encrypt([]byte(a.AccessToken), testKey)
	if err != nil {
		panic(err)
	}
	var refresh *string
	if a.RefreshToken != "" {
		r, err := crypto.Encrypt([]byte(a.RefreshToken), testKey)
		if err != nil {
			panic(err)
		}
		refresh = &r
	}
	return &mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = a.ID
		*dest[1].(*string) = a.UserID
		*dest[2].(*string) = a.Provider
		*dest[3].(*string) = a.ProviderAccountID
		*dest[4].(*string) = a.Username
		*dest[5].(*string) = a.DisplayName
		*dest[6].(*string) = a.ProfilePicture
		*dest[7].(*string) = access
		*dest[8].(**string) = refresh
		*dest[9].(*time.Time) = a.TokenExpiresAt
		*dest[10].(*string) = a.Scope
		*dest[11].(*[]byte) = []byte(`{"union_id":"union-1"}`)
		*dest[12].(*bool) = a.ReauthRequired
		*dest[13].(*time.Time) = a.CreatedAt
		*dest[14].(*time.Time) = a.UpdatedAt
		return nil
	}}
}

func jobRow(j model.PublishJob) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = j.PublishID
		*dest[1].(*string) = j.AccountID
		*dest[2].(*string) = j.UserID
		*dest[3].(**string) = j.ContentID
		*dest[4].(*string) = j.Status
		*dest[5].(**string) = j.FailReason
		*dest[6].(*int) = j.Attempts
		*dest[7].(*time.Time) = j.CreatedAt
		*dest[8].(*time.Time) = j.UpdatedAt
		return nil
	}}
}

func commandTag(rows int64) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", rows))
}
