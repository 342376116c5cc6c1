package onboarding

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Step is a wizard position.
type Step int

const (
	StepCompanyRegistration Step = iota
	StepBusinessAddress
	StepContactPerson
	StepBankingDetails
	StepDocuments
	StepReview
	StepComplete
)

var stepNames = [...]string{
	StepCompanyRegistration: "company-registration",
	StepBusinessAddress:     "business-address",
	StepContactPerson:       "contact-person",
	StepBankingDetails:      "banking-details",
	StepDocuments:           "document-upload",
	StepReview:              "review",
	StepComplete:            "complete",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "step(" + strconv.Itoa(int(s)) + ")"
	}
	return stepNames[s]
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool { return s >= StepCompanyRegistration && s <= StepComplete }

// Editable reports whether s collects a fragment.
func (s Step) Editable() bool { return s >= StepCompanyRegistration && s <= StepDocuments }

// ParseStep accepts an ordinal or a step name.
func ParseStep(v string) (Step, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if s := Step(n); s.Valid() {
			return s, nil
		}
		return 0, fmt.Errorf("unknown step %d", n)
	}
	for i, name := range stepNames {
		if strings.EqualFold(name, v) {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", v)
}

// UnmarshalJSON accepts either the ordinal or the name.
func (s *Step) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var parsed Step
	var err error
	switch v := raw.(type) {
	case float64:
		parsed, err = ParseStep(strconv.Itoa(int(v)))
	case string:
		parsed, err = ParseStep(v)
	default:
		err = fmt.Errorf("invalid step %s", string(b))
	}
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EventKind names a wizard input.
type EventKind int

const (
	EventNext EventKind = iota
	EventBack
	EventEdit
	EventSubmitted
)

func (k EventKind) String() string {
	switch k {
	case EventNext:
		return "next"
	case EventBack:
		return "back"
	case EventEdit:
		return "edit"
	case EventSubmitted:
		return "submit"
	default:
		return "unknown"
	}
}

// Event is a wizard input. Target is only read for EventEdit.
type Event struct {
	Kind   EventKind
	Target Step
}

// Transition is the wizard's step function. It has no side effects.
func Transition(s Step, e Event) (Step, error) {
	switch e.Kind {
	case EventNext:
		if s >= StepCompanyRegistration && s <= StepDocuments {
			return s + 1, nil
		}
	case EventBack:
		if s >= StepBusinessAddress && s <= StepReview {
			return s - 1, nil
		}
	case EventEdit:
		if s == StepReview && e.Target.Editable() {
			return e.Target, nil
		}
	case EventSubmitted:
		if s == StepReview {
			return StepComplete, nil
		}
	}
	return s, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, e.Kind, s)
}
