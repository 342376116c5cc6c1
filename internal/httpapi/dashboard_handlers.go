package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"c2d.dev/portal/internal/auth"
)

var paymentsGuard = auth.Guard{Permissions: []string{
	auth.PermPaymentInitiate,
	auth.PermPaymentReceive,
	auth.PermPaymentRefund,
}}

// listing proxies a backend collection verbatim.
func (a *API) listing(fetch func(Backend, context.Context, string) (json.RawMessage, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		raw, err := fetch(a.deps.Backend, r.Context(), sessionToken(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	})
}
