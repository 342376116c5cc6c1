package httpapi

import (
	"net/http"
	"strconv"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/backend"
)

func (a *API) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ops, err := a.deps.Backend.Operations(r.Context(), sessionToken(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		writeJSON(w, http.StatusOK, map[string]any{"groups": auth.GroupOperations(ops)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !ensurePermission(w, r, auth.Guard{Permission: auth.PermViewRole}) {
			return
		}
		roles, err := a.deps.Backend.Roles(r.Context(), sessionToken(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		if !ensurePermission(w, r, auth.Guard{Permission: auth.PermCreateRole}) {
			return
		}
		var req backend.CreateRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			handleError(w, r, err)
			return
		}
		role, err := a.deps.Backend.CreateRole(r.Context(), sessionToken(r), req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.created", map[string]any{
			"actor":         auth.UserFromContext(r.Context()).Email,
			"resource_type": "role",
			"resource_id":   role.ID,
			"role_name":     role.Name,
			"operations":    req.OperationIDs,
		})
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
