package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const minTokenBytes = 32

// NewSessionToken returns an unguessable URL-safe token built from n bytes of
// CSPRNG output, base64url-encoded without padding. n below 32 is rejected
// rather than silently widened.
func NewSessionToken(n int) (string, error) {
	if n < minTokenBytes {
		return "", errors.New("session token entropy below 32 bytes")
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
