package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/validate"
)

type fakeAuthn struct {
	token string
	err   error
	calls int
}

func (f *fakeAuthn) Login(_ context.Context, email, _ string) (auth.User, string, error) {
	f.calls++
	if f.err != nil {
		return auth.User{}, "", f.err
	}
	return auth.User{Email: email, FullName: "Asha"}, f.token, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestLoginStoresSession(t *testing.T) {
	st := store.NewMemory()
	authn := &fakeAuthn{token: "opaque"}
	m := NewManager(st, authn, WithLogger(zap.NewNop()))

	s, err := m.Login(context.Background(), Credentials{Email: " owner@acme.in ", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.ID == "" || s.User.Email != "owner@acme.in" {
		t.Fatalf("unexpected session: %+v", s)
	}
	got, err := m.Current(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Token != "opaque" {
		t.Fatalf("unexpected token: %q", got.Token)
	}
	if tok, err := m.Token(context.Background(), s.ID); err != nil || tok != "opaque" {
		t.Fatalf("Token: %q %v", tok, err)
	}

	if err := m.Logout(context.Background(), s.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := m.Current(context.Background(), s.ID); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsLocally(t *testing.T) {
	authn := &fakeAuthn{token: "x"}
	m := NewManager(store.NewMemory(), authn)

	_, err := m.Login(context.Background(), Credentials{Email: "nope"})
	var verr validate.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if verr["email"] != "Invalid email address" || verr["password"] != "Password is required" {
		t.Fatalf("unexpected messages: %v", verr)
	}
	if authn.calls != 0 {
		t.Fatal("backend contacted with invalid credentials")
	}
}

func TestLoginPropagatesBackendError(t *testing.T) {
	boom := errors.New("backend down")
	m := NewManager(store.NewMemory(), &fakeAuthn{err: boom})
	if _, err := m.Login(context.Background(), Credentials{Email: "a@b.in", Password: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestSessionExpiryFollowsToken(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	token := signed(t, c.t.Add(time.Hour))
	m := NewManager(store.NewMemory(), &fakeAuthn{token: token}, WithClock(c.now), WithTTL(12*time.Hour))

	s, err := m.Login(context.Background(), Credentials{Email: "a@b.in", Password: "x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.ExpiresAt.After(c.t.Add(time.Hour)) {
		t.Fatalf("session outlives token: %v", s.ExpiresAt)
	}

	c.t = c.t.Add(2 * time.Hour)
	if _, err := m.Current(context.Background(), s.ID); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestLoginRefusesExpiredToken(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	m := NewManager(store.NewMemory(), &fakeAuthn{token: signed(t, c.t.Add(-time.Minute))}, WithClock(c.now))
	if _, err := m.Login(context.Background(), Credentials{Email: "a@b.in", Password: "x"}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCurrentUnknownOrBlank(t *testing.T) {
	m := NewManager(store.NewMemory(), &fakeAuthn{})
	for _, id := range []string{"", "  ", "missing"} {
		if _, err := m.Current(context.Background(), id); !errors.Is(err, auth.ErrUnauthorized) {
			t.Fatalf("Current(%q): expected ErrUnauthorized, got %v", id, err)
		}
	}
	if err := m.Logout(context.Background(), "missing"); err != nil {
		t.Fatalf("Logout unknown: %v", err)
	}
}

func TestTokenLookup(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	m := NewManager(store.NewMemory(), &fakeAuthn{token: "opaque"}, WithClock(c.now), WithTTL(time.Hour))
	live, err := m.Login(context.Background(), Credentials{Email: "a@b.in", Password: "x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	stale, err := m.Login(context.Background(), Credentials{Email: "b@b.in", Password: "x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	tok, err := m.Token(context.Background(), live.ID)
	if err != nil || tok != "opaque" {
		t.Fatalf("Token(live) = %q, %v", tok, err)
	}

	c.t = c.t.Add(2 * time.Hour)
	cases := []struct {
		name string
		id   string
	}{
		{"unknown", "no-such-session"},
		{"blank", ""},
		{"expired", stale.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := m.Token(context.Background(), tc.id)
			if !errors.Is(err, auth.ErrUnauthorized) || tok != "" {
				t.Fatalf("Token(%q) = %q, %v", tc.id, tok, err)
			}
		})
	}
}
