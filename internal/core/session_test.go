package core

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_IssueAndValidate(t *testing.T) {
	svc := NewSessionService("test-secret", "views-to-downloads")

	token, err := svc.Issue("user-1", "alice@example.com", time.Hour)
	require.NoError(t, err)

	sess, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "alice@example.com", sess.Email)
}

func TestSession_Expired(t *testing.T) {
	svc := NewSessionService("test-secret", "")

	token, err := svc.Issue("user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_WrongSecret(t *testing.T) {
	token, err := NewSessionService("secret-a", "").Issue("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = NewSessionService("secret-b", "").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_WrongIssuer(t *testing.T) {
	token, err := NewSessionService("test-secret", "someone-else").Issue("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = NewSessionService("test-secret", "views-to-downloads").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewSessionService("test-secret", "").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_MissingSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewSessionService("test-secret", "").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_MissingExpiry(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "user-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewSessionService("test-secret", "").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
