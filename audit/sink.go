// Package audit implements the append-only event log of security-relevant
// actions. Recording is best effort: a write failure is logged locally and
// never propagated to the caller, so audit trouble cannot fail a request.
package audit

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dashport/dashport/metrics"
)

// Actions recorded by the access-control core.
const (
	ActionLoginSuccess         = "login_success"
	ActionLoginFailed          = "login_failed"
	ActionLoginBlockedIP       = "login_blocked_ip"
	ActionLogout               = "logout"
	ActionSessionInvalidated   = "session_invalidated"
	ActionPasswordChanged      = "password_changed"
	ActionPasswordChangeFailed = "password_change_failed"
	ActionProfileUpdate        = "profile_update"
	ActionUserCreated          = "user_created"
	ActionUserUpdated          = "user_updated"
	ActionUserDeleted          = "user_deleted"
	ActionRolesUpdated         = "roles_updated"
	ActionRoleDeleted          = "role_deleted"
)

// Entry is one audit record. Entries are appended one JSON object per line
// and never mutated or deleted by this core.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Username  string         `json:"username"`
	IPAddress string         `json:"ip_address"`
	Details   map[string]any `json:"details,omitempty"`
}

// Recorder is the audit sink consumed by the request layer.
type Recorder interface {
	Record(action, username, ip string, details map[string]any)
}

// FileSink appends entries to a log file, serialized by a mutex.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFileSink opens (creating if needed) the audit log for appending.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("audit log path cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: file, logger: logger}, nil
}

// Record appends one timestamped entry. An empty username is recorded as
// "anonymous".
func (s *FileSink) Record(action, username, ip string, details map[string]any) {
	if username == "" {
		username = "anonymous"
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Username:  username,
		IPAddress: ip,
		Details:   details,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("Failed to encode audit entry",
			zap.String("action", action),
			zap.Error(err))
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	_, err = s.file.Write(line)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("Failed to write audit entry",
			zap.String("action", action),
			zap.Error(err))
		return
	}

	metrics.AuditEventsTotal.WithLabelValues(action).Inc()
}

// Close closes the underlying log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// NopSink discards all entries. Used in tests.
type NopSink struct{}

func (NopSink) Record(action, username, ip string, details map[string]any) {}
