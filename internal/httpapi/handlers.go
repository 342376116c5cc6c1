// Package httpapi exposes the portal over JSON HTTP: login and sessions, permission-gated
// company administration, dashboard listings and the public onboarding wizard.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/backend"
	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/session"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/upload"
)

const serviceName = "c2d-portal"

// ReadyProbe reports whether the storage backend answers.
type ReadyProbe struct {
	Store store.Store
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return store.Ping(ctx, rp.Store)
}

// Sessions resolves bearer session ids.
type Sessions interface {
	Login(ctx context.Context, creds session.Credentials) (auth.Session, error)
	Current(ctx context.Context, id string) (auth.Session, error)
	Logout(ctx context.Context, id string) error
}

// Backend is the subset of the remote REST API the handlers proxy.
type Backend interface {
	Operations(ctx context.Context, token string) ([]auth.Operation, error)
	Roles(ctx context.Context, token string) ([]auth.Role, error)
	CreateRole(ctx context.Context, token string, req backend.CreateRoleRequest) (auth.Role, error)
	InviteEmployee(ctx context.Context, token string, req backend.InviteRequest) (backend.InviteResponse, error)
	Products(ctx context.Context, token string) (json.RawMessage, error)
	SalesOrders(ctx context.Context, token string) (json.RawMessage, error)
	Payments(ctx context.Context, token string) (json.RawMessage, error)
}

// Uploads accepts onboarding documents and manages their stored bytes.
type Uploads interface {
	Accept(ctx context.Context, slot upload.Slot, filename string, r io.Reader) (upload.Document, error)
	onboarding.Blobs
}

// Deps wires the API to its collaborators.
type Deps struct {
	Sessions  Sessions
	Backend   Backend
	Drafts    store.Store
	Uploads   Uploads
	Submitter onboarding.Submitter
	Probe     ReadyProbe
	Version   string
	Logger    *zap.Logger

	WizardIdleTTL  time.Duration
	MaxUploadBytes int64
	RateBurst      int
	RatePerSec     int
	AllowedOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	deps       Deps
	log        *zap.Logger
	wizards    *wizardRegistry
	maxUpload  int64
	rateBurst  int
	ratePerSec int
}

func New(deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		deps:       deps,
		log:        deps.Logger,
		maxUpload:  deps.MaxUploadBytes,
		rateBurst:  deps.RateBurst,
		ratePerSec: deps.RatePerSec,
	}
	if a.log == nil {
		a.log = obs.Logger()
	}
	if a.maxUpload <= 0 {
		a.maxUpload = 5 << 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	a.wizards = newWizardRegistry(deps.WizardIdleTTL, a.openWizard)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/navigation", a.handleNavigation)

	a.mux.Handle("/v1/operations", RequirePermission(auth.Guard{Permission: auth.PermViewOperations})(http.HandlerFunc(a.handleOperations)))
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.Handle("/v1/employees/invite", RequirePermission(auth.Guard{Permission: auth.PermInviteEmployee})(http.HandlerFunc(a.handleInvite)))

	a.mux.Handle("/v1/products", RequirePermission(auth.Guard{Permission: auth.PermProductView})(a.listing(Backend.Products)))
	a.mux.Handle("/v1/sales-orders", RequirePermission(auth.Guard{Permission: auth.PermSOView})(a.listing(Backend.SalesOrders)))
	a.mux.Handle("/v1/payments", RequirePermission(paymentsGuard)(a.listing(Backend.Payments)))

	a.mux.HandleFunc("/v1/onboarding", a.handleOnboardingCollection)
	a.mux.HandleFunc("/v1/onboarding/", a.handleOnboardingScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(a.deps.AllowedOrigins)(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// SweepWizards evicts wizards idle for longer than the configured TTL.
// Their drafts stay in the store.
func (a *API) SweepWizards() int {
	return a.wizards.sweep()
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.deps.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Probe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.deps.Version,
	})
}
