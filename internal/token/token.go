// Package token issues the opaque ticket credentials embedded in QR codes.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Bytes is the entropy per token. 32 bytes makes collisions
// astronomically unlikely; the caller's retry-on-conflict insert is a
// safety net, not the primary mechanism.
const Bytes = 32

// New returns a URL-safe ticket token. Possession of the token is
// equivalent to authorization to check in, so it must come from a
// cryptographic source and must never be derived from row ids.
func New() (string, error) {
	buf := make([]byte, Bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
