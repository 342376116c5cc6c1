package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/v1/info",
	"/metrics",
	"/v1/auth/login",
	"/v1/onboarding",
}
var publicPrefixes = []string{
	"/v1/onboarding/",
}

// withAuth resolves the bearer session id. Public paths pass through anonymously but
// still carry a session when a valid one is presented.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.deps.Sessions == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		public := isPublicPath(r.URL.Path)

		id, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w, r, err.Error())
			return
		}

		s, err := a.deps.Sessions.Current(r.Context(), id)
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			if errors.Is(err, auth.ErrUnauthorized) {
				unauthorized(w, r, "invalid or expired session")
				return
			}
			a.log.Error("session_lookup_failed", zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := auth.ContextWithSession(r.Context(), s)
		ctx = auth.ContextWithToken(ctx, s.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission refuses requests whose session user does not satisfy g.
func RequirePermission(g auth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ensurePermission(w, r, g) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// ensurePermission writes 401 or 403 and reports false when the request may not proceed.
func ensurePermission(w http.ResponseWriter, r *http.Request, g auth.Guard) bool {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		unauthorized(w, r, "authentication required")
		return false
	}
	if g.Allows(user) {
		return true
	}
	label := guardLabel(g)
	obs.PermissionDenied(label)
	obs.Logger().Info("permission_denied",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("email", user.Email),
		zap.String("permission", label),
		zap.String("path", r.URL.Path),
	)
	_ = audit.LogEvent(r.Context(), "auth.permission.denied", map[string]any{
		"actor":      user.Email,
		"permission": label,
		"path":       r.URL.Path,
	})
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	writeError(w, r, http.StatusForbidden, "forbidden")
	return false
}

func guardLabel(g auth.Guard) string {
	if g.Permission != "" {
		return g.Permission
	}
	sep := "|"
	if g.RequireAll {
		sep = "&"
	}
	return strings.Join(g.Permissions, sep)
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="c2d-portal"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

// sessionToken returns the backend token of the authenticated request.
func sessionToken(r *http.Request) string {
	token, _ := auth.TokenFromContext(r.Context())
	return token
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
