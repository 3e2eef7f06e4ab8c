package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/config"
)

type recordingSink struct {
	actions []string
	addrs   []string
}

func (r *recordingSink) Record(action, username, ip string, details map[string]any) {
	r.actions = append(r.actions, action)
	r.addrs = append(r.addrs, ip)
}

func tightQuota() config.QuotaConfig {
	return config.QuotaConfig{Events: 1, Interval: time.Hour, Burst: 2}
}

func limitedRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewLimiter("login", tightQuota(), zap.NewNop())
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		if w := limitedRequest(handler, "203.0.113.5:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst got %d", i+1, w.Code)
		}
	}

	w := limitedRequest(handler, "203.0.113.5:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
}

func TestLimiterBucketsPerClient(t *testing.T) {
	limiter := NewLimiter("login", tightQuota(), zap.NewNop())
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust one client's bucket.
	for i := 0; i < 3; i++ {
		limitedRequest(handler, "203.0.113.5:1234")
	}

	if w := limitedRequest(handler, "198.51.100.7:1234"); w.Code != http.StatusOK {
		t.Errorf("an exhausted bucket leaked across clients: %d", w.Code)
	}
}

func TestLimiterExemptsLocalClients(t *testing.T) {
	limiter := NewLimiter("login", tightQuota(), zap.NewNop())
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		if w := limitedRequest(handler, "127.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("local request %d was limited: %d", i+1, w.Code)
		}
	}
}

func TestLimiterAuditsBlockedRequests(t *testing.T) {
	sink := &recordingSink{}
	limiter := NewLimiter("login", tightQuota(), zap.NewNop()).
		WithAudit(sink, audit.ActionLoginBlockedIP)
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		limitedRequest(handler, "203.0.113.5:1234")
	}

	if len(sink.actions) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(sink.actions))
	}
	if sink.actions[0] != audit.ActionLoginBlockedIP {
		t.Errorf("unexpected audit action %q", sink.actions[0])
	}
	if sink.addrs[0] != "203.0.113.5" {
		t.Errorf("unexpected audited address %q", sink.addrs[0])
	}
}
