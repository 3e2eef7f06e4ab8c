package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SessionFingerprint derives the token binding a session to the role set and
// password state it was issued under. Role order does not matter; any role or
// password change produces a different token, which the status check uses to
// force re-authentication.
func SessionFingerprint(roles []string, passwordHash string) string {
	sorted := append([]string(nil), roles...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(strings.Join(sorted, ",")))
	h.Write([]byte{0})
	h.Write([]byte(passwordHash))
	return hex.EncodeToString(h.Sum(nil))
}
