package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/userstore"
)

// IdentityResolver computes the effective principal for a request from the
// trust decision, the session state, and a fresh snapshot of the user store.
type IdentityResolver struct {
	store  userstore.Store
	logger *zap.Logger
}

// NewIdentityResolver creates an identity resolver backed by the given store.
func NewIdentityResolver(store userstore.Store, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{store: store, logger: logger}
}

// LocalPrincipal is the implicit administrator principal for locally trusted
// requests. No session state is created or consulted for these.
func LocalPrincipal() *Principal {
	return &Principal{
		Username: LocalUsername,
		Roles:    []string{AdminsRoleName},
		IsLocal:  true,
		IsAdmin:  true,
	}
}

// Resolve returns the principal for the request, or nil for an anonymous
// request. sessionUsername is the username carried by the decoded session
// cookie, empty when no session is present. The function is pure with respect
// to its inputs and safe to call multiple times per request; only a store
// read failure is an error.
func (ir *IdentityResolver) Resolve(ctx context.Context, r *http.Request, sessionUsername string) (*Principal, error) {
	if IsLocalRequest(r) {
		return LocalPrincipal(), nil
	}
	if sessionUsername == "" {
		return nil, nil
	}

	doc, err := ir.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := doc.FindUser(sessionUsername)
	if user == nil {
		// Dangling session: the user record was deleted out from under it.
		ir.logger.Debug("Session references unknown user", zap.String("username", sessionUsername))
		return nil, nil
	}

	return &Principal{
		Username: user.Username,
		Roles:    append([]string(nil), user.Roles...),
		Email:    user.Email,
		IsAdmin:  IsAdmin(user.Roles, doc.Roles),
	}, nil
}
