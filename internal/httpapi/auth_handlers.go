package httpapi

import (
	"net/http"
	"time"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/session"
)

type loginResponse struct {
	SessionID   string         `json:"session_id"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        auth.User      `json:"user"`
	Permissions []string       `json:"permissions"`
	Navigation  []auth.NavItem `json:"navigation"`
}

type meResponse struct {
	User        auth.User      `json:"user"`
	Permissions []string       `json:"permissions"`
	Navigation  []auth.NavItem `json:"navigation"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.deps.Sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "sessions unavailable")
		return
	}

	var creds session.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.deps.Sessions.Login(r.Context(), creds)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"actor": creds.Email,
		})
		handleError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"actor":         s.User.Email,
		"resource_type": "session",
		"resource_id":   s.ID,
		"expires_at":    s.ExpiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		SessionID:   s.ID,
		ExpiresAt:   s.ExpiresAt,
		User:        s.User,
		Permissions: auth.EffectivePermissions(&s.User).Names(),
		Navigation:  auth.Navigation(&s.User),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	if err := a.deps.Sessions.Logout(r.Context(), s.ID); err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"actor":         s.User.Email,
		"resource_type": "session",
		"resource_id":   s.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		User:        s.User,
		Permissions: auth.EffectivePermissions(&s.User).Names(),
		Navigation:  auth.Navigation(&s.User),
		ExpiresAt:   s.ExpiresAt,
	})
}

func (a *API) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user := auth.UserFromContext(r.Context())
	if user == nil {
		unauthorized(w, r, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": auth.Navigation(user)})
}
