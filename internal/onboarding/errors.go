package onboarding

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrIllegalTransition = errors.New("onboarding: illegal transition")
	ErrIncomplete        = errors.New("onboarding: application incomplete")
	ErrBusy              = errors.New("onboarding: submission in progress")
	ErrSubmitFailed      = errors.New("onboarding: submission failed")
)

// ValidationError carries field-level messages keyed by wire field name.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "onboarding: invalid " + e.Step.String() + ": " + strings.Join(parts, "; ")
}

// IncompleteError lists what is still missing before the application can be submitted.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return ErrIncomplete.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteError) Unwrap() error { return ErrIncomplete }
