package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/backend"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/upload"
	"c2d.dev/portal/internal/validate"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorWith(w, r, code, msg, nil)
}

func writeErrorWith(w http.ResponseWriter, r *http.Request, code int, msg string, extra map[string]any) {
	payload := map[string]any{
		"error": msg,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	writeErrorWith(w, r, http.StatusUnprocessableEntity, "validation failed", map[string]any{"fields": fields})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleError maps domain and backend errors onto HTTP answers.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErrs  validate.Errors
		stepErr    *onboarding.ValidationError
		incomplete *onboarding.IncompleteError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &fieldErrs):
		writeFieldErrors(w, r, fieldErrs)
	case errors.As(err, &stepErr):
		writeErrorWith(w, r, http.StatusUnprocessableEntity, "validation failed", map[string]any{
			"step":   stepErr.Step.String(),
			"fields": stepErr.Fields,
		})
	case errors.As(err, &incomplete):
		writeErrorWith(w, r, http.StatusConflict, "application incomplete", map[string]any{"missing": incomplete.Missing})
	case errors.Is(err, onboarding.ErrSubmitFailed):
		writeError(w, r, http.StatusBadGateway, backend.UserMessage(err))
	case errors.Is(err, onboarding.ErrIllegalTransition), errors.Is(err, onboarding.ErrBusy):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytes):
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, upload.ErrType):
		writeError(w, r, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, upload.ErrEmpty), errors.Is(err, upload.ErrUnknownSlot), errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, backend.UserMessage(err))
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			writeError(w, r, http.StatusBadGateway, backend.UserMessage(err))
			return
		}
		writeError(w, r, http.StatusInternalServerError, backend.GenericMessage)
	}
}
