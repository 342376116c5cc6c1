package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, ok := TokenExpiry(signed)
	if !ok || !got.Equal(exp.UTC()) {
		t.Fatalf("TokenExpiry = %v, %v; want %v", got, ok, exp)
	}

	if _, ok := TokenExpiry("opaque-session-token"); ok {
		t.Fatal("opaque token should have no expiry")
	}
}

func TestSessionContext(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Fatal("expected anonymous context")
	}
	s := Session{ID: "s1", User: User{Email: "a@b.c"}, ExpiresAt: time.Now().Add(time.Minute)}
	ctx := ContextWithSession(context.Background(), s)
	got, ok := SessionFromContext(ctx)
	if !ok || got.ID != "s1" {
		t.Fatalf("session not found: %+v", got)
	}
	if u := UserFromContext(ctx); u == nil || u.Email != "a@b.c" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if s.Expired(time.Now()) {
		t.Fatal("session should not be expired yet")
	}
	if !s.Expired(s.ExpiresAt) {
		t.Fatal("session should be expired at its deadline")
	}

	if _, ok := TokenFromContext(ContextWithToken(ctx, "")); ok {
		t.Fatal("empty token should not be stored")
	}
	if tok, ok := TokenFromContext(ContextWithToken(ctx, "abc")); !ok || tok != "abc" {
		t.Fatalf("unexpected token %q", tok)
	}
}
