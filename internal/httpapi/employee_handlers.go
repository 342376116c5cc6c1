package httpapi

import (
	"net/http"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/backend"
)

func (a *API) handleInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var form backend.InviteForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := form.Request()
	if err != nil {
		handleError(w, r, err)
		return
	}
	out, err := a.deps.Backend.InviteEmployee(r.Context(), sessionToken(r), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.invited", map[string]any{
		"actor":         auth.UserFromContext(r.Context()).Email,
		"resource_type": "user",
		"resource_id":   out.UserID,
		"email":         req.Email,
		"roles":         req.RoleIDs,
	})
	writeJSON(w, http.StatusCreated, out)
}
