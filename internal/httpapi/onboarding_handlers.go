package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/upload"
)

type nextRequest struct {
	Step *onboarding.Step `json:"step"`
	Data json.RawMessage  `json:"data"`
}

type editRequest struct {
	Target onboarding.Step `json:"target"`
}

type wizardResponse struct {
	ID string `json:"id"`
	onboarding.Snapshot
}

type submitResponse struct {
	Message       string              `json:"message"`
	ApplicationID string              `json:"applicationId"`
	Wizard        onboarding.Snapshot `json:"wizard"`
}

func (a *API) handleOnboardingCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.deps.Drafts == nil || a.deps.Submitter == nil {
		writeError(w, r, http.StatusServiceUnavailable, "onboarding unavailable")
		return
	}
	id, ctrl, err := a.wizards.create(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/onboarding/%s", id))
	writeJSON(w, http.StatusCreated, wizardResponse{ID: id, Snapshot: ctrl.Snapshot()})
}

// handleOnboardingScoped routes /v1/onboarding/{id}[/action[/slot]].
func (a *API) handleOnboardingScoped(w http.ResponseWriter, r *http.Request) {
	if a.deps.Drafts == nil || a.deps.Submitter == nil {
		writeError(w, r, http.StatusServiceUnavailable, "onboarding unavailable")
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/onboarding/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	ctrl, err := a.wizards.get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, wizardResponse{ID: id, Snapshot: ctrl.Snapshot()})
		case http.MethodDelete:
			a.abandon(w, r, id, ctrl)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "next":
		a.next(w, r, id, ctrl)
	case len(parts) == 2 && parts[1] == "back":
		a.move(w, r, id, ctrl, func(*http.Request) error { return ctrl.Back() })
	case len(parts) == 2 && parts[1] == "edit":
		a.move(w, r, id, ctrl, func(r *http.Request) error {
			var req editRequest
			if err := decodeJSON(w, r, &req); err != nil {
				return fmt.Errorf("%w: %v", errBadRequest, err)
			}
			return ctrl.EditJump(req.Target)
		})
	case len(parts) == 2 && parts[1] == "submit":
		a.submit(w, r, id, ctrl)
	case len(parts) == 3 && parts[1] == "documents":
		a.document(w, r, id, ctrl, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

var errBadRequest = errors.New("bad request")

func (a *API) next(w http.ResponseWriter, r *http.Request, id string, ctrl *onboarding.Controller) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req nextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	step := ctrl.Step()
	if req.Step != nil && *req.Step != step {
		handleError(w, r, fmt.Errorf("%w: %s data submitted at %s", onboarding.ErrIllegalTransition, *req.Step, step))
		return
	}

	var frag onboarding.Fragment
	if step == onboarding.StepDocuments {
		// Documents are committed from what was uploaded, never from client-supplied handles.
		docs := ctrl.Staged()
		frag = &docs
	} else {
		f, err := onboarding.DecodeFragment(step, req.Data)
		if err != nil {
			if errors.Is(err, onboarding.ErrIllegalTransition) {
				handleError(w, r, err)
				return
			}
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		frag = f
	}
	if err := ctrl.Next(r.Context(), frag); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, Snapshot: ctrl.Snapshot()})
}

func (a *API) move(w http.ResponseWriter, r *http.Request, id string, ctrl *onboarding.Controller, fn func(*http.Request) error) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := fn(r); err != nil {
		if errors.Is(err, errBadRequest) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{ID: id, Snapshot: ctrl.Snapshot()})
}

func (a *API) submit(w http.ResponseWriter, r *http.Request, id string, ctrl *onboarding.Controller) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	receipt, err := ctrl.Submit(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "onboarding.submitted", map[string]any{
		"resource_type":  "application",
		"resource_id":    receipt.ApplicationID,
		"wizard_id":      id,
		"application_id": receipt.ApplicationID,
	})
	writeJSON(w, http.StatusOK, submitResponse{
		Message:       receipt.Message,
		ApplicationID: receipt.ApplicationID,
		Wizard:        ctrl.Snapshot(),
	})
}

func (a *API) abandon(w http.ResponseWriter, r *http.Request, id string, ctrl *onboarding.Controller) {
	if err := ctrl.Abandon(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	a.wizards.drop(id)
	_ = audit.LogEvent(r.Context(), "onboarding.abandoned", map[string]any{
		"resource_type": "wizard",
		"resource_id":   id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// document accepts a multipart "file" into slot (POST) or clears the slot (DELETE).
func (a *API) document(w http.ResponseWriter, r *http.Request, id string, ctrl *onboarding.Controller, rawSlot string) {
	slot, err := upload.ParseSlot(rawSlot)
	if err != nil {
		handleError(w, r, err)
		return
	}
	switch r.Method {
	case http.MethodPost:
	case http.MethodDelete:
		if err := ctrl.StageDocument(r.Context(), slot, nil); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wizardResponse{ID: id, Snapshot: ctrl.Snapshot()})
		return
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		return
	}
	if a.deps.Uploads == nil {
		writeError(w, r, http.StatusServiceUnavailable, "uploads unavailable")
		return
	}
	if step := ctrl.Step(); step != onboarding.StepDocuments {
		handleError(w, r, fmt.Errorf("%w: documents can only be attached at %s, wizard is at %s",
			onboarding.ErrIllegalTransition, onboarding.StepDocuments, step))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		handleError(w, r, fmt.Errorf("%w: %w", upload.ErrEmpty, err))
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	doc, err := a.deps.Uploads.Accept(r.Context(), slot, header.Filename, file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := ctrl.StageDocument(r.Context(), slot, &doc); err != nil {
		_ = a.deps.Uploads.Release(r.Context(), doc)
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}
