package portal

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenBytes gives 256 bits of entropy; the token is the only credential an
// external viewer holds, so guessing must be hopeless.
const tokenBytes = 32

// NewToken returns a URL-safe random access token.
func NewToken() string {
	raw := make([]byte, tokenBytes)
	_, _ = rand.Read(raw)
	return base64.RawURLEncoding.EncodeToString(raw)
}
