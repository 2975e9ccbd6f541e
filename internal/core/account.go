package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/viewstodownloads/tiktok-connect/internal/crypto"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/platform"
)

const accountColumns = `id, user_id, provider, provider_account_id, username, display_name, profile_picture,
	access_token, refresh_token, token_expires_at, scope, metadata, reauth_required, created_at, updated_at`

// AccountService persists connected accounts. Tokens are sealed with AES-GCM
// before they reach the database.
type AccountService struct {
	db  DB
	key []byte
}

func NewAccountService(db DB, key []byte) *AccountService {
	return &AccountService{db: db, key: key}
}

// Link stores the account for userID, updating the existing row when the same
// TikTok account was linked before.
func (s *AccountService) Link(ctx context.Context, userID string, tok *model.Token, profile *model.Profile, now time.Time) (*model.ConnectedAccount, error) {
	acct := &model.ConnectedAccount{
		ID:                platform.NewID(),
		UserID:            userID,
		Provider:          model.ProviderTikTok,
		ProviderAccountID: profile.OpenID,
		Username:          profile.Username,
		DisplayName:       profile.DisplayName,
		ProfilePicture:    profile.Avatar(),
		AccessToken:       tok.AccessToken,
		RefreshToken:      tok.RefreshToken,
		TokenExpiresAt:    tok.ExpiresAt(now),
		Scope:             tok.Scope,
		Metadata:          profileMetadata(profile),
	}

	access, refresh, err := s.seal(tok.AccessToken, tok.RefreshToken)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(acct.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO connected_accounts (id, user_id, provider, provider_account_id, username, display_name,
			profile_picture, access_token, refresh_token, token_expires_at, scope, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (user_id, provider, provider_account_id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			profile_picture = EXCLUDED.profile_picture,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scope = EXCLUDED.scope,
			metadata = connected_accounts.metadata || EXCLUDED.metadata,
			reauth_required = FALSE,
			updated_at = now()
		 RETURNING id, created_at, updated_at`,
		acct.ID, acct.UserID, acct.Provider, acct.ProviderAccountID, acct.Username, acct.DisplayName,
		acct.ProfilePicture, access, refresh, acct.TokenExpiresAt, acct.Scope, metadata,
	).Scan(&acct.ID, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert connected account: %w", err)
	}
	return acct, nil
}

// Get returns an account by id regardless of owner. Only background jobs
// that already hold a trusted account id use it.
func (s *AccountService) Get(ctx context.Context, id string) (*model.ConnectedAccount, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM connected_accounts WHERE id = $1`, id)
	return s.scan(row)
}

// GetForUser returns the account only when userID owns it. Accounts owned by
// someone else are reported as ErrNotFound.
func (s *AccountService) GetForUser(ctx context.Context, id, userID string) (*model.ConnectedAccount, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM connected_accounts
		 WHERE id = $1 AND user_id = $2 AND provider = $3`, id, userID, model.ProviderTikTok)
	return s.scan(row)
}

// ListForUser returns the user's TikTok accounts without their tokens.
func (s *AccountService) ListForUser(ctx context.Context, userID string) ([]model.ConnectedAccount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, provider, provider_account_id, username, display_name, profile_picture,
			token_expires_at, scope, reauth_required, created_at, updated_at
		 FROM connected_accounts WHERE user_id = $1 AND provider = $2 ORDER BY created_at`,
		userID, model.ProviderTikTok)
	if err != nil {
		return nil, fmt.Errorf("list connected accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.ConnectedAccount
	for rows.Next() {
		var a model.ConnectedAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.Username, &a.DisplayName,
			&a.ProfilePicture, &a.TokenExpiresAt, &a.Scope, &a.ReauthRequired, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connected account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connected accounts: %w", err)
	}
	return accounts, nil
}

// UpdateTokens stores a refreshed token pair. An empty refresh token keeps the
// stored one.
func (s *AccountService) UpdateTokens(ctx context.Context, id string, tok *model.Token, expiresAt time.Time) error {
	access, refresh, err := s.seal(tok.AccessToken, tok.RefreshToken)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`UPDATE connected_accounts
		 SET access_token = $2, refresh_token = COALESCE($3, refresh_token), token_expires_at = $4,
			reauth_required = FALSE, updated_at = now()
		 WHERE id = $1`,
		id, access, refresh, expiresAt)
	if err != nil {
		return fmt.Errorf("update tokens for account %s: %w", id, err)
	}
	return nil
}

func (s *AccountService) MarkReauthRequired(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE connected_accounts SET reauth_required = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark account %s reauth required: %w", id, err)
	}
	return nil
}

// UpdateUsername fills in the username when a later API call reveals it.
func (s *AccountService) UpdateUsername(ctx context.Context, id, username string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE connected_accounts SET username = $2, updated_at = now() WHERE id = $1`, id, username)
	if err != nil {
		return fmt.Errorf("update username for account %s: %w", id, err)
	}
	return nil
}

// Delete removes the user's account. Publish jobs cascade.
func (s *AccountService) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM connected_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete connected account %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AccountService) scan(row pgx.Row) (*model.ConnectedAccount, error) {
	var (
		a        model.ConnectedAccount
		access   string
		refresh  *string
		metadata []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.Username, &a.DisplayName,
		&a.ProfilePicture, &access, &refresh, &a.TokenExpiresAt, &a.Scope, &metadata, &a.ReauthRequired,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connected account: %w", err)
	}

	plain, err := crypto.Decrypt(access, s.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token for account %s: %w", a.ID, err)
	}
	a.AccessToken = string(plain)

	if refresh != nil && *refresh != "" {
		plain, err := crypto.Decrypt(*refresh, s.key)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token for account %s: %w", a.ID, err)
		}
		a.RefreshToken = string(plain)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for account %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

// seal encrypts the token pair. A nil refresh result means "no refresh token".
func (s *AccountService) seal(accessToken, refreshToken string) (string, *string, error) {
	access, err := crypto.Encrypt([]byte(accessToken), s.key)
	if err != nil {
		return "", nil, fmt.Errorf("encrypt access token: %w", err)
	}
	if refreshToken == "" {
		return access, nil, nil
	}
	refresh, err := crypto.Encrypt([]byte(refreshToken), s.key)
	if err != nil {
		return "", nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return access, &refresh, nil
}

func profileMetadata(p *model.Profile) map[string]any {
	m := map[string]any{}
	if p.UnionID != "" {
		m["union_id"] = p.UnionID
	}
	if p.AvatarURL100 != "" {
		m["avatar_url_100"] = p.AvatarURL100
	}
	if p.Placeholder {
		m["placeholder_profile"] = true
	}
	return m
}
