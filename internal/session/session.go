// Package session holds authenticated state as an explicitly passed object.
// A session is created on login, supplies the Authorization header for store
// requests, and is torn down on logout. Nothing here verifies tokens: the
// store signs and validates them; the client only reads the expiry claim to
// know when to refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/lab-scheduler/internal/gateway"
)

// Privileged roles may list every reservation, not just their own.
const (
	RoleSuperAdmin = "super_admin"
	RoleLabManager = "lab_manager"
	RoleResearcher = "researcher"
	RoleStudent    = "student"
)

var (
	// ErrLoggedOut indicates the session was torn down or never established.
	ErrLoggedOut = errors.New("session: not logged in")
	// ErrRefreshExpired indicates the refresh token itself no longer works
	// and a full login is required.
	ErrRefreshExpired = errors.New("session: refresh token rejected")
)

// AuthAPI is the slice of the store client the session manager needs.
type AuthAPI interface {
	Login(ctx context.Context, creds gateway.LoginRequest) (gateway.LoginResponse, error)
	RefreshAccess(ctx context.Context, refreshToken string) (gateway.RefreshResponse, error)
}

// Session carries the token pair and account for one authenticated user. It
// implements gateway.TokenSource.
type Session struct {
	mu              sync.RWMutex
	user            gateway.User
	access          string
	refresh         string
	accessExpiresAt time.Time
}

// Authorization returns the bearer header value, or empty after logout.
func (s *Session) Authorization() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == "" {
		return ""
	}
	return "Bearer " + s.access
}

// User returns the authenticated account snapshot.
func (s *Session) User() gateway.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Privileged reports whether the account may read all reservations.
func (s *Session) Privileged() bool {
	role := s.User().Role
	return role == RoleSuperAdmin || role == RoleLabManager
}

// ExpiresAt returns the access token expiry, or zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessExpiresAt
}

// Expired reports whether the access token needs refreshing at the given
// instant. Sessions with an unparseable expiry are treated as live until the
// store says otherwise.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == "" {
		return true
	}
	return !s.accessExpiresAt.IsZero() && !now.Before(s.accessExpiresAt)
}

func (s *Session) setAccess(token string) {
	s.mu.Lock()
	s.access = token
	s.accessExpiresAt = accessExpiry(token)
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.user = gateway.User{}
	s.access = ""
	s.refresh = ""
	s.accessExpiresAt = time.Time{}
	s.mu.Unlock()
}

// Manager drives session initialization, refresh and teardown against the
// reservation store.
type Manager struct {
	auth   AuthAPI
	now    func() time.Time
	logger *slog.Logger
}

// NewManager wires a session manager. A nil now falls back to time.Now.
func NewManager(auth AuthAPI, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{auth: auth, now: now, logger: logger}
}

// Login authenticates against the store and returns a live session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if m == nil || m.auth == nil {
		return nil, fmt.Errorf("session: manager not configured")
	}

	grant, err := m.auth.Login(ctx, gateway.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	s := &Session{user: grant.User, refresh: grant.Refresh}
	s.setAccess(grant.Access)

	m.logger.InfoContext(ctx, "session established",
		"user_id", grant.User.ID,
		"role", grant.User.Role,
		"access_expires_at", s.ExpiresAt(),
	)
	return s, nil
}

// EnsureFresh refreshes the access token when it has expired. A rejected
// refresh token tears the session down and reports ErrRefreshExpired.
func (m *Manager) EnsureFresh(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrLoggedOut
	}
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return ErrLoggedOut
	}
	if !s.Expired(m.now()) {
		return nil
	}

	rotated, err := m.auth.RefreshAccess(ctx, refresh)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthenticated) {
			s.clear()
			return fmt.Errorf("%w: %v", ErrRefreshExpired, err)
		}
		return err
	}

	s.setAccess(rotated.Access)
	m.logger.DebugContext(ctx, "access token refreshed", "access_expires_at", s.ExpiresAt())
	return nil
}

// Logout tears the session down locally. The store's refresh token simply
// ages out; there is no server-side revocation endpoint.
func (m *Manager) Logout(ctx context.Context, s *Session) {
	if s == nil {
		return
	}
	userID := s.User().ID
	s.clear()
	m.logger.InfoContext(ctx, "session torn down", "user_id", userID)
}

// accessExpiry reads the exp claim from the token without verifying the
// signature. Unparseable tokens yield a zero expiry.
func accessExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
