package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/config"
	"github.com/dashport/dashport/dashconfig"
	"github.com/dashport/dashport/session"
	"github.com/dashport/dashport/userstore"
	"github.com/dashport/dashport/userstore/yamlfile"
)

const (
	remoteClient = "203.0.113.9:51234"
	alicePass    = "alice-password"
	rootPass     = "root-password"
)

type testEnv struct {
	router   chi.Router
	users    userstore.Store
	sessions *session.Manager
}

func looseQuota() config.QuotaConfig {
	return config.QuotaConfig{Events: 1000, Interval: time.Minute, Burst: 1000}
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Auth: config.AuthConfig{
			SessionSecret:     "router-test-secret",
			SessionCookieName: "dashport_session",
			SessionTTL:        24 * time.Hour,
			MinPasswordLength: 8,
		},
		RateLimit: config.RateLimitConfig{
			Login:    looseQuota(),
			Password: looseQuota(),
			Mutation: looseQuota(),
			Default:  looseQuota(),
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.AppConfig) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()

	users, err := yamlfile.NewStore(filepath.Join(dir, "users.yaml"), logger)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	aliceDigest, err := auth.HashPassword(alicePass)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	rootDigest, err := auth.HashPassword(rootPass)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	seed := &userstore.Document{
		Users: []userstore.User{
			{Username: "alice", Password: aliceDigest, Roles: []string{"Ops"}, Email: "alice@example.com"},
			{Username: "root", Password: rootDigest, Roles: []string{"Admins"}},
		},
		Roles: []userstore.Role{
			{Name: "Ops", Categories: []string{"infra", "monitoring"}},
			{Name: "Media", Categories: []string{"media"}},
			{Name: "Admins", Categories: []string{"admin"}, IsAdmin: true},
		},
	}
	if err := users.Save(context.Background(), seed); err != nil {
		t.Fatalf("failed to seed user store: %v", err)
	}

	dash, err := dashconfig.NewStore(filepath.Join(dir, "dashboard.yaml"), logger)
	if err != nil {
		t.Fatalf("failed to create dashboard store: %v", err)
	}
	dashDoc := &dashconfig.Document{
		Services: []dashconfig.Service{
			{Name: "proxmox", URL: "http://proxmox.lan", Category: "infra"},
			{Name: "grafana", URL: "http://grafana.lan", Category: "monitoring"},
			{Name: "jellyfin", URL: "http://jellyfin.lan", Category: "media"},
			{Name: "vault", URL: "http://vault.lan", Category: "secrets"},
		},
		PortMappings: []dashconfig.PortMapping{{Port: 3000, Service: "grafana"}},
		Settings:     map[string]any{"title": "home"},
	}
	if err := dash.Save(context.Background(), dashDoc); err != nil {
		t.Fatalf("failed to seed dashboard store: %v", err)
	}

	sessions, err := session.NewManager(cfg.Auth.SessionCookieName, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	authn, err := auth.NewAuthenticator(users, logger)
	if err != nil {
		t.Fatalf("failed to create authenticator: %v", err)
	}
	resolver := auth.NewIdentityResolver(users, logger)

	router := NewRouter(users, dash, authn, resolver, sessions, audit.NopSink{}, cfg, logger)
	return &testEnv{router: router, users: users, sessions: sessions}
}

func (env *testEnv) do(method, path, remoteAddr string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reader)
	r.RemoteAddr = remoteAddr
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

func (env *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := env.do("POST", "/api/auth/login", remoteClient,
		map[string]string{"username": username, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "dashport_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie")
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", w.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if w := env.do("GET", "/health", remoteClient, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// An attacker probing for valid usernames must get the same answer for a
// wrong password and a nonexistent account.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, testConfig())

	wrongPass := env.do("POST", "/api/auth/login", remoteClient,
		map[string]string{"username": "alice", "password": "incorrect"})
	noUser := env.do("POST", "/api/auth/login", remoteClient,
		map[string]string{"username": "nobody", "password": "incorrect"})

	if wrongPass.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", wrongPass.Code)
	}
	if wrongPass.Code != noUser.Code {
		t.Errorf("status differs: %d vs %d", wrongPass.Code, noUser.Code)
	}
	if wrongPass.Body.String() != noUser.Body.String() {
		t.Errorf("bodies differ: %q vs %q", wrongPass.Body.String(), noUser.Body.String())
	}
	if len(wrongPass.Result().Cookies()) != 0 {
		t.Errorf("failed login set a cookie")
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do("POST", "/api/auth/login", remoteClient,
		map[string]string{"username": "root", "password": rootPass})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	user, _ := body["user"].(map[string]any)
	if user == nil {
		t.Fatalf("response carries no user: %v", body)
	}
	if user["username"] != "root" {
		t.Errorf("unexpected username %v", user["username"])
	}
	if admin, _ := user["is_admin"].(bool); !admin {
		t.Errorf("root not reported as admin: %v", user)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Errorf("expected one HttpOnly session cookie, got %+v", cookies)
	}
}

func TestReadGate(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("anonymous remote gets 401 with login marker", func(t *testing.T) {
		w := env.do("GET", "/api/config", remoteClient, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if required, _ := body["login_required"].(bool); !required {
			t.Errorf("login_required marker missing: %v", body)
		}
	})

	t.Run("authenticated user passes", func(t *testing.T) {
		cookie := env.login(t, "alice", alicePass)
		if w := env.do("GET", "/api/config", remoteClient, nil, cookie); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("local client passes without a session", func(t *testing.T) {
		if w := env.do("GET", "/api/config", "127.0.0.1:40000", nil); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestWriteGate(t *testing.T) {
	env := newTestEnv(t, testConfig())
	settings := map[string]any{"title": "updated"}

	t.Run("non-admin gets 403 without login marker", func(t *testing.T) {
		cookie := env.login(t, "alice", alicePass)
		w := env.do("POST", "/api/settings", remoteClient, settings, cookie)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if _, present := body["login_required"]; present {
			t.Errorf("write gate leaked login_required: %v", body)
		}
	})

	t.Run("anonymous gets 403 not 401", func(t *testing.T) {
		if w := env.do("POST", "/api/settings", remoteClient, settings); w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("admin session passes", func(t *testing.T) {
		cookie := env.login(t, "root", rootPass)
		if w := env.do("POST", "/api/settings", remoteClient, settings, cookie); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("local client passes", func(t *testing.T) {
		if w := env.do("POST", "/api/settings", "127.0.0.1:40000", settings); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestServiceVisibilityFollowsRoleCategories(t *testing.T) {
	env := newTestEnv(t, testConfig())
	cookie := env.login(t, "alice", alicePass)

	w := env.do("GET", "/api/config", remoteClient, nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var doc dashconfig.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response is not a dashboard document: %v", err)
	}

	seen := make(map[string]bool)
	for _, s := range doc.Services {
		seen[s.Name] = true
	}
	if !seen["proxmox"] || !seen["grafana"] {
		t.Errorf("accessible services missing: %v", seen)
	}
	if seen["vault"] || seen["jellyfin"] {
		t.Errorf("inaccessible services leaked: %v", seen)
	}
	if len(doc.PortMappings) != 1 {
		t.Errorf("port mappings should pass through unfiltered: %+v", doc.PortMappings)
	}
}

func TestUserListRedactsPasswords(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do("GET", "/api/users", "127.0.0.1:40000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Errorf("user list leaked password material: %s", w.Body.String())
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("anonymous", func(t *testing.T) {
		if w := env.do("GET", "/api/auth/status", remoteClient, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid session", func(t *testing.T) {
		cookie := env.login(t, "alice", alicePass)
		w := env.do("GET", "/api/auth/status", remoteClient, nil, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if authed, _ := body["authenticated"].(bool); !authed {
			t.Errorf("expected authenticated=true: %v", body)
		}
	})

	t.Run("local client", func(t *testing.T) {
		w := env.do("GET", "/api/auth/status", "127.0.0.1:40000", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		user, _ := body["user"].(map[string]any)
		if user == nil || user["username"] != auth.LocalUsername {
			t.Errorf("expected local principal, got %v", body)
		}
	})

	t.Run("tokenless session is grandfathered", func(t *testing.T) {
		issue := httptest.NewRecorder()
		if err := env.sessions.Issue(issue, &session.State{Username: "alice"}); err != nil {
			t.Fatalf("failed to issue session: %v", err)
		}
		cookie := issue.Result().Cookies()[0]

		if w := env.do("GET", "/api/auth/status", remoteClient, nil, cookie); w.Code != http.StatusOK {
			t.Errorf("tokenless session rejected: %d %s", w.Code, w.Body.String())
		}
	})
}

// Changing a user's roles must invalidate their existing sessions, but only
// at the next status check; other endpoints keep honoring the session until
// then.
func TestRoleChangeInvalidatesSessionOnStatusCheck(t *testing.T) {
	env := newTestEnv(t, testConfig())
	cookie := env.login(t, "alice", alicePass)

	if w := env.do("GET", "/api/auth/status", remoteClient, nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("pre-change status failed: %d", w.Code)
	}

	w := env.do("PUT", "/api/users/alice", "127.0.0.1:40000",
		map[string]any{"roles": []string{"Media"}})
	if w.Code != http.StatusOK {
		t.Fatalf("role update failed: %d %s", w.Code, w.Body.String())
	}

	// Non-status endpoints still accept the stale session.
	if w := env.do("GET", "/api/config", remoteClient, nil, cookie); w.Code != http.StatusOK {
		t.Errorf("stale session rejected outside status check: %d", w.Code)
	}

	w = env.do("GET", "/api/auth/status", remoteClient, nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after role change, got %d: %s", w.Code, w.Body.String())
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "dashport_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Errorf("session cookie was not cleared on invalidation")
	}
}

func TestPasswordChange(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("wrong current password", func(t *testing.T) {
		cookie := env.login(t, "root", rootPass)
		w := env.do("POST", "/api/auth/change-password", remoteClient,
			map[string]string{"current_password": "incorrect", "new_password": "brand-new-password"}, cookie)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("weak new password", func(t *testing.T) {
		cookie := env.login(t, "root", rootPass)
		w := env.do("POST", "/api/auth/change-password", remoteClient,
			map[string]string{"current_password": rootPass, "new_password": "short"}, cookie)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("local sessions cannot change a password", func(t *testing.T) {
		w := env.do("POST", "/api/auth/change-password", "127.0.0.1:40000",
			map[string]string{"current_password": "x", "new_password": "brand-new-password"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("successful change keeps the actor logged in", func(t *testing.T) {
		oldCookie := env.login(t, "alice", alicePass)

		w := env.do("POST", "/api/auth/change-password", remoteClient,
			map[string]string{"current_password": alicePass, "new_password": "brand-new-password"}, oldCookie)
		if w.Code != http.StatusOK {
			t.Fatalf("password change failed: %d %s", w.Code, w.Body.String())
		}

		var newCookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == "dashport_session" && c.Value != "" {
				newCookie = c
			}
		}
		if newCookie == nil {
			t.Fatalf("password change did not refresh the session cookie")
		}

		if w := env.do("GET", "/api/auth/status", remoteClient, nil, newCookie); w.Code != http.StatusOK {
			t.Errorf("refreshed session rejected: %d %s", w.Code, w.Body.String())
		}
		if w := env.do("GET", "/api/auth/status", remoteClient, nil, oldCookie); w.Code != http.StatusUnauthorized {
			t.Errorf("stale pre-change session survived the status check: %d", w.Code)
		}
		if w := env.do("POST", "/api/auth/login", remoteClient,
			map[string]string{"username": "alice", "password": "brand-new-password"}); w.Code != http.StatusOK {
			t.Errorf("login with the new password failed: %d", w.Code)
		}
	})
}

func TestLastAdminIsProtected(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("delete refused", func(t *testing.T) {
		w := env.do("DELETE", "/api/users/root", "127.0.0.1:40000", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
		if body := decodeBody(t, w); body["code"] != "LAST_ADMIN" {
			t.Errorf("unexpected error code: %v", body)
		}
	})

	t.Run("demotion refused", func(t *testing.T) {
		w := env.do("PUT", "/api/users/root", "127.0.0.1:40000",
			map[string]any{"roles": []string{"Ops"}})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("allowed once another admin exists", func(t *testing.T) {
		w := env.do("POST", "/api/users", "127.0.0.1:40000", map[string]any{
			"username": "root2",
			"password": "second-admin-pass",
			"roles":    []string{"Admins"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("failed to create second admin: %d %s", w.Code, w.Body.String())
		}

		if w := env.do("DELETE", "/api/users/root", "127.0.0.1:40000", nil); w.Code != http.StatusOK {
			t.Errorf("deleting a non-last admin failed: %d %s", w.Code, w.Body.String())
		}
	})
}

func TestRoleDeletion(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("referenced role refused", func(t *testing.T) {
		w := env.do("DELETE", "/api/roles/Ops", "127.0.0.1:40000", nil)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
		}
		if body := decodeBody(t, w); body["code"] != "ROLE_IN_USE" {
			t.Errorf("unexpected error code: %v", body)
		}
	})

	t.Run("unreferenced role deleted", func(t *testing.T) {
		if w := env.do("DELETE", "/api/roles/Media", "127.0.0.1:40000", nil); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("unknown role is 404", func(t *testing.T) {
		if w := env.do("DELETE", "/api/roles/Ghost", "127.0.0.1:40000", nil); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestCreateUserConflict(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do("POST", "/api/users", "127.0.0.1:40000", map[string]any{
		"username": "alice",
		"password": "whatever-pass",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Login = config.QuotaConfig{Events: 1, Interval: time.Hour, Burst: 2}
	env := newTestEnv(t, cfg)

	creds := map[string]string{"username": "alice", "password": "incorrect"}
	for i := 0; i < 2; i++ {
		if w := env.do("POST", "/api/auth/login", remoteClient, creds); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d within burst got %d", i+1, w.Code)
		}
	}

	if w := env.do("POST", "/api/auth/login", remoteClient, creds); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", w.Code)
	}

	// The limiter keys on the claimed client address, so another client is
	// unaffected, and local clients are never throttled.
	if w := env.do("POST", "/api/auth/login", "198.51.100.7:1234", creds); w.Code != http.StatusUnauthorized {
		t.Errorf("other client was throttled: %d", w.Code)
	}
	for i := 0; i < 5; i++ {
		if w := env.do("POST", "/api/auth/login", "127.0.0.1:40000", creds); w.Code != http.StatusUnauthorized {
			t.Fatalf("local client was throttled: %d", w.Code)
		}
	}

	// Status polling is exempt from limiting regardless of volume.
	for i := 0; i < 10; i++ {
		if w := env.do("GET", "/api/auth/status", remoteClient, nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("status poll %d got %d, expected plain 401", i+1, w.Code)
		}
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, testConfig())
	cookie := env.login(t, "alice", alicePass)

	w := env.do("POST", "/api/auth/logout", remoteClient, nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout failed: %d %s", w.Code, w.Body.String())
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "dashport_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Errorf("logout did not clear the session cookie")
	}
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("self service fields", func(t *testing.T) {
		cookie := env.login(t, "alice", alicePass)
		w := env.do("PUT", "/api/auth/profile", remoteClient,
			map[string]string{"email": "new@example.com", "first_name": "Alice"}, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("profile update failed: %d %s", w.Code, w.Body.String())
		}

		doc, err := env.users.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load store: %v", err)
		}
		user := doc.FindUser("alice")
		if user.Email != "new@example.com" || user.FirstName != "Alice" {
			t.Errorf("profile fields not persisted: %+v", user)
		}
		if user.Roles[0] != "Ops" {
			t.Errorf("profile update touched roles: %v", user.Roles)
		}
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		cookie := env.login(t, "alice", alicePass)
		w := env.do("PUT", "/api/auth/profile", remoteClient,
			map[string]string{"email": "not-an-address"}, cookie)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("local sessions have no profile", func(t *testing.T) {
		w := env.do("PUT", "/api/auth/profile", "127.0.0.1:40000",
			map[string]string{"email": "x@example.com"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do("POST", "/api/settings", "127.0.0.1:40000", map[string]any{"theme": "dark"})
	if w.Code != http.StatusOK {
		t.Fatalf("settings update failed: %d %s", w.Code, w.Body.String())
	}

	cookie := env.login(t, "alice", alicePass)
	w = env.do("GET", "/api/settings", remoteClient, nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("settings read failed: %d %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["theme"] != "dark" {
		t.Errorf("settings did not round-trip: %v", body)
	}
}
