package yamlfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dashport/dashport/userstore"
)

func testDocument() *userstore.Document {
	return &userstore.Document{
		Users: []userstore.User{
			{Username: "alice", Password: "$2a$10$digest", Roles: []string{"Ops"}, Email: "alice@example.com"},
			{Username: "bob", Password: "legacy-plain", Roles: []string{"Media"}},
		},
		Roles: []userstore.Role{
			{Name: "Ops", Categories: []string{"infra", "monitoring"}},
			{Name: "Media", Categories: []string{"media"}},
			{Name: "Admins", IsAdmin: true},
		},
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	store, err := NewStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, path
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore("", zap.NewNop()); err == nil {
		t.Errorf("expected error for empty path")
	}
	if _, err := NewStore("users.yaml", nil); err == nil {
		t.Errorf("expected error for nil logger")
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testDocument()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(doc.Users) != 2 || len(doc.Roles) != 3 {
		t.Fatalf("unexpected document shape: %d users, %d roles", len(doc.Users), len(doc.Roles))
	}

	alice := doc.FindUser("alice")
	if alice == nil {
		t.Fatalf("alice not found after round trip")
	}
	if alice.Password != "$2a$10$digest" {
		t.Errorf("password did not survive the round trip: %q", alice.Password)
	}
	if ops := doc.FindRole("Ops"); ops == nil || len(ops.Categories) != 2 {
		t.Errorf("role table did not survive the round trip: %+v", ops)
	}
}

// A missing users file is an I/O failure, never an empty user list. Treating
// it as "no users" would silently lock every remote client out.
func TestLoadMissingFileIsStoreIO(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background())
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if !errors.Is(err, userstore.ErrStoreIO) {
		t.Errorf("expected ErrStoreIO, got %v", err)
	}
}

func TestLoadMalformedFileIsStoreIO(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("users: [unclosed"), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := store.Load(context.Background())
	if !errors.Is(err, userstore.ErrStoreIO) {
		t.Errorf("expected ErrStoreIO, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testDocument()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	err := store.Update(ctx, func(doc *userstore.Document) error {
		user := doc.FindUser("bob")
		if user == nil {
			return userstore.ErrUserNotFound
		}
		user.Password = "$2a$10$migrated"
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := doc.FindUser("bob").Password; got != "$2a$10$migrated" {
		t.Errorf("update was not persisted: %q", got)
	}
}

func TestUpdateErrorDiscardsChanges(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testDocument()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	sentinel := errors.New("rejected")
	err := store.Update(ctx, func(doc *userstore.Document) error {
		doc.Users = nil
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(doc.Users) != 2 {
		t.Errorf("failed update was persisted anyway: %d users", len(doc.Users))
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store, path := newTestStore(t)
	if err := store.Save(context.Background(), testDocument()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "users.yaml" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}
