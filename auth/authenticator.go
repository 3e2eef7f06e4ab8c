package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dashport/dashport/userstore"
)

// dummyDigest is compared when the requested user does not exist, so a
// missing user costs roughly the same as a wrong password.
var dummyDigest, _ = bcrypt.GenerateFromPassword([]byte("dashport-timing-pad"), bcrypt.DefaultCost)

// Authenticator validates username/password credentials against the user
// store. Stored passwords are either bcrypt digests or legacy plaintext
// values; plaintext records are upgraded to bcrypt on the next successful
// authentication.
type Authenticator struct {
	store  userstore.Store
	logger *zap.Logger
}

// NewAuthenticator creates a credential authenticator.
func NewAuthenticator(store userstore.Store, logger *zap.Logger) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Authenticator{store: store, logger: logger}, nil
}

// Authenticate validates the credentials and returns a copy of the matching
// user record plus the current role table. The returned record always carries
// the hashed password, even when the stored record was plaintext and got
// migrated during this call, so fingerprints derived from it stay valid.
// Failure is ErrInvalidCredentials regardless of whether the user exists.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*userstore.User, []userstore.Role, error) {
	doc, err := a.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	user := doc.FindUser(username)
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(password))
		return nil, nil, ErrInvalidCredentials
	}

	matched := *user
	if LooksHashed(user.Password) {
		if !VerifyPassword(password, user.Password) {
			return nil, nil, ErrInvalidCredentials
		}
	} else {
		if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
			return nil, nil, ErrInvalidCredentials
		}
		if digest := a.migrate(ctx, username, password); digest != "" {
			matched.Password = digest
		}
	}

	return &matched, doc.Roles, nil
}

// migrate upgrades a legacy plaintext record to bcrypt. Best effort: a
// failure leaves the plaintext record in place and the login still succeeds.
// Returns the new digest, or "" if the upgrade did not happen.
func (a *Authenticator) migrate(ctx context.Context, username, password string) string {
	digest, err := HashPassword(password)
	if err != nil {
		a.logger.Error("Failed to hash password for migration",
			zap.String("username", username),
			zap.Error(err))
		return ""
	}

	err = a.store.Update(ctx, func(doc *userstore.Document) error {
		user := doc.FindUser(username)
		if user == nil {
			return userstore.ErrUserNotFound
		}
		if LooksHashed(user.Password) {
			// Another request migrated it first; keep its digest.
			digest = user.Password
		} else {
			user.Password = digest
		}
		return nil
	})
	if err != nil {
		a.logger.Error("Failed to migrate plaintext password",
			zap.String("username", username),
			zap.Error(err))
		return ""
	}

	a.logger.Info("Migrated legacy plaintext password to bcrypt",
		zap.String("username", username))
	return digest
}
