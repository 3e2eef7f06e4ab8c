// Package auth implements dashport's access-control core: trust resolution
// for proxy-forwarded clients, identity resolution to an effective principal,
// role-to-category authorization, password hashing with legacy plaintext
// migration, and session fingerprinting for stale-session detection.
package auth

import "errors"

// LocalUsername is the username reported for implicitly trusted local clients.
const LocalUsername = "localhost"

// AdminsRoleName is always treated as administrative regardless of the
// is_admin flag stored on the role.
const AdminsRoleName = "Admins"

// Common access-control errors
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthorizationDenied    = errors.New("admin access required")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrValidation             = errors.New("invalid input")
	ErrLastAdmin              = errors.New("cannot remove the last administrator")
)

// Principal is the resolved identity and privilege set for a single request.
// It is computed fresh on every request and never cached beyond it.
type Principal struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Email    string   `json:"email,omitempty"`
	IsLocal  bool     `json:"is_local"`
	IsAdmin  bool     `json:"is_admin"`
}
