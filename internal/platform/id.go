package platform

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 12

// NewID returns a random UUID string for primary keys.
func NewID() string {
	return uuid.New().String()
}

// NewName returns prefix followed by a short random lowercase suffix.
func NewName(prefix string) string {
	b := randomBytes(shortIDLength)
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}

// NewToken returns n random bytes hex-encoded.
func NewToken(n int) string {
	return hex.EncodeToString(randomBytes(n))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return b
}
