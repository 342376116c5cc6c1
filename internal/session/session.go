// Package session keeps authenticated portal sessions in the key-value store.
// The hydrated user and the backend bearer token live server-side; clients hold
// only the opaque session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/validate"
)

const (
	keyPrefix  = "session:"
	DefaultTTL = 12 * time.Hour
)

// Authenticator verifies credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.User, string, error)
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var credentialMessages = map[string]string{
	"email.required":    "Invalid email address",
	"email.email":       "Invalid email address",
	"password.required": "Password is required",
}

// Validate trims the email and checks both fields.
func (c *Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	return validate.Struct(c, credentialMessages)
}

// Manager creates, resolves and ends sessions.
type Manager struct {
	store store.Store
	authn Authenticator
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Manager)

// WithTTL caps session lifetime. The backend token's own expiry still wins when sooner.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func NewManager(st store.Store, authn Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		authn: authn,
		ttl:   DefaultTTL,
		now:   time.Now,
		log:   obs.Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func key(id string) string { return keyPrefix + id }

// Login validates creds, authenticates with the backend and stores a new session.
// Invalid credentials come back as validate.Errors without contacting the backend.
func (m *Manager) Login(ctx context.Context, creds Credentials) (auth.Session, error) {
	if err := creds.Validate(); err != nil {
		return auth.Session{}, err
	}
	user, token, err := m.authn.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return auth.Session{}, err
	}

	now := m.now().UTC()
	expires := now.Add(m.ttl)
	if exp, ok := auth.TokenExpiry(token); ok && exp.Before(expires) {
		expires = exp
	}
	if !expires.After(now) {
		return auth.Session{}, fmt.Errorf("%w: backend token already expired", auth.ErrUnauthorized)
	}
	s := auth.Session{
		ID:        uuid.NewString(),
		User:      user,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := store.SetJSON(ctx, m.store, key(s.ID), s, expires.Sub(now)); err != nil {
		return auth.Session{}, fmt.Errorf("save session: %w", err)
	}
	m.log.Info("session_created", zap.String("email", user.Email), zap.Time("expires_at", expires))
	return s, nil
}

// Current resolves id to a live session or auth.ErrUnauthorized.
func (m *Manager) Current(ctx context.Context, id string) (auth.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return auth.Session{}, auth.ErrUnauthorized
	}
	var s auth.Session
	if err := store.GetJSON(ctx, m.store, key(id), &s); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.Session{}, auth.ErrUnauthorized
		}
		return auth.Session{}, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Remove(ctx, key(id))
		return auth.Session{}, auth.ErrUnauthorized
	}
	return s, nil
}

// Token returns the backend bearer token of session id.
func (m *Manager) Token(ctx context.Context, id string) (string, error) {
	s, err := m.Current(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// Logout ends session id. Ending an unknown session is not an error.
func (m *Manager) Logout(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return m.store.Remove(ctx, key(id))
}
