package contribution

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned when the requested item is not in the catalog.
	ErrItemNotFound = errors.New("contribution: item not found")
	// ErrFullyFunded is returned when the requested item no longer accepts contributions.
	ErrFullyFunded = errors.New("contribution: item fully funded")
	// ErrInvalidTransition is wrapped by TransitionError.
	ErrInvalidTransition = errors.New("contribution: invalid transition")
	// ErrSubmissionInFlight is returned when the same draft is already being submitted.
	ErrSubmissionInFlight = errors.New("contribution: submission already in flight")
	// ErrDraftDiscarded is returned when a draft that already failed is confirmed again.
	ErrDraftDiscarded = errors.New("contribution: draft discarded after failed submission")
	// ErrInvalidSnapshot is returned by Restore for snapshots with an unknown state.
	ErrInvalidSnapshot = errors.New("contribution: invalid snapshot")
)

// TransitionError reports an event that is not allowed in the current state.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("contribution: %s not allowed while %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Rule identifies the validation rule a form failed.
type Rule string

const (
	RuleMissingField   Rule = "missing_field"
	RuleTooLong        Rule = "too_long"
	RuleInvalidEmail   Rule = "invalid_email"
	RuleInvalidAmount  Rule = "invalid_amount"
	RuleBelowMinimum   Rule = "below_minimum"
	RuleAboveRemaining Rule = "above_remaining"
)

// ValidationError reports the first failed rule. Limit carries the bound for amount and length
// rules.
type ValidationError struct {
	Rule   Rule
	Fields []string
	Limit  int64
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleBelowMinimum:
		return fmt.Sprintf("contribution: amount below minimum %d", e.Limit)
	case RuleAboveRemaining:
		return fmt.Sprintf("contribution: amount above remaining %d", e.Limit)
	case RuleMissingField:
		return fmt.Sprintf("contribution: missing fields %v", e.Fields)
	case RuleTooLong:
		return fmt.Sprintf("contribution: %v longer than %d bytes", e.Fields, e.Limit)
	default:
		return fmt.Sprintf("contribution: validation failed: %s", e.Rule)
	}
}

// SubmissionError wraps a failed hand-off of a draft to the intake endpoint.
type SubmissionError struct {
	Reference string
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("contribution: submission %s failed: %v", e.Reference, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// StatusError is returned by HTTPSubmitter for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("contribution: intake status %d", e.StatusCode)
	}
	return fmt.Sprintf("contribution: intake status %d: %s", e.StatusCode, e.Body)
}
