// Package session implements dashport's cookie-backed session layer. The
// session state travels entirely in a signed cookie: a base64url JSON payload
// plus an HMAC-SHA256 signature over it. There is no server-side session
// store; a cookie that fails verification is simply anonymous.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name unless configured otherwise.
const DefaultCookieName = "dashport_session"

// State is the server-relevant content of a session cookie. Token is the
// authorization fingerprint the session was issued under; it is empty for
// sessions created before fingerprinting existed, which are grandfathered.
type State struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
	IssuedAt int64  `json:"issued_at"`
}

// Manager signs, issues, reads, and clears session cookies.
type Manager struct {
	cookieName string
	secret     []byte
	ttl        time.Duration
}

// NewManager creates a session manager. The secret is hashed before use as
// the HMAC key.
func NewManager(cookieName, secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	h := sha256.Sum256([]byte(secret))
	return &Manager{cookieName: cookieName, secret: h[:], ttl: ttl}, nil
}

// Issue writes a fresh, signed session cookie. The cookie is persistent
// (year-scale by default), path-scoped to the whole application, HttpOnly,
// and SameSite=Lax. It is not regenerated on ordinary requests, only on
// login and on self password change.
func (m *Manager) Issue(w http.ResponseWriter, st *State) error {
	if st == nil || st.Username == "" {
		return errors.New("session state must carry a username")
	}
	st.IssuedAt = time.Now().Unix()

	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded + "." + m.sign(encoded),
		Path:     "/",
		Expires:  time.Now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read decodes and verifies the session cookie. It returns nil when the
// cookie is absent, malformed, or fails signature verification; a bad cookie
// makes the request anonymous, it is never an error.
func (m *Manager) Read(r *http.Request) *State {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil
	}

	i := strings.LastIndex(cookie.Value, ".")
	if i < 0 {
		return nil
	}
	encoded, signature := cookie.Value[:i], cookie.Value[i+1:]

	if !hmac.Equal([]byte(signature), []byte(m.sign(encoded))) {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil
	}
	if st.Username == "" {
		return nil
	}
	return &st
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sign(encoded string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
