// Package userstore defines the user and role document that backs dashport's
// access-control core, plus the storage interface its backends implement.
// The document is always read and rewritten wholesale; there are no partial
// or field-level persistence semantics.
package userstore

import (
	"context"
	"errors"
)

// Common user store errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrRoleNotFound = errors.New("role not found")
	ErrRoleExists   = errors.New("role already exists")
	ErrRoleInUse    = errors.New("role is still assigned to one or more users")
	ErrStoreIO      = errors.New("user store I/O failure")
)

// User is a single account record. Password holds either a bcrypt digest or,
// for records predating hashing, the legacy plaintext value; the auth package
// dispatches on which one it is and migrates plaintext records forward.
type User struct {
	Username  string   `yaml:"username" json:"username"`
	Password  string   `yaml:"password" json:"password,omitempty"`
	Email     string   `yaml:"email,omitempty" json:"email,omitempty"`
	FirstName string   `yaml:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string   `yaml:"last_name,omitempty" json:"last_name,omitempty"`
	Roles     []string `yaml:"roles" json:"roles"`
}

// Role grants access to a set of dashboard categories. A role literally named
// "Admins" is always treated as administrative regardless of IsAdmin.
type Role struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Categories  []string `yaml:"categories" json:"categories"`
	IsAdmin     bool     `yaml:"is_admin" json:"is_admin"`
}

// Document is the complete user/role document as stored on disk.
type Document struct {
	Users []User `yaml:"users" json:"users"`
	Roles []Role `yaml:"roles" json:"roles"`
}

// FindUser returns a pointer to the user with the given username (case
// sensitive), or nil if no such user exists.
func (d *Document) FindUser(username string) *User {
	for i := range d.Users {
		if d.Users[i].Username == username {
			return &d.Users[i]
		}
	}
	return nil
}

// Redacted returns a copy of the user with the password value stripped,
// suitable for API responses.
func (u User) Redacted() User {
	u.Password = ""
	return u
}

// FindRole returns a pointer to the role with the given name, or nil.
func (d *Document) FindRole(name string) *Role {
	for i := range d.Roles {
		if d.Roles[i].Name == name {
			return &d.Roles[i]
		}
	}
	return nil
}

// Store defines the interface for user/role document storage. Load returns a
// private copy the caller may mutate freely; mutations only take effect
// through Update or Save.
type Store interface {
	// Load reads the complete document. A missing or unreadable document is
	// an error, never an empty document.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the complete document.
	Save(ctx context.Context, doc *Document) error

	// Update runs fn inside the store's single-writer critical section with a
	// freshly loaded document and persists the result if fn returns nil.
	Update(ctx context.Context, fn func(doc *Document) error) error

	// Close releases any resources held by the store.
	Close() error
}
