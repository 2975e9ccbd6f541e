package core

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrReauthRequired means the account's credentials can no longer be
	// refreshed and the user must reconnect it.
	ErrReauthRequired = errors.New("tiktok account requires re-authentication")

	// ErrPrivacyConflict means promotional content was requested but the
	// creator allows no visibility other than SELF_ONLY.
	ErrPrivacyConflict = errors.New("branded content cannot be posted privately and no public privacy option is available")
)
