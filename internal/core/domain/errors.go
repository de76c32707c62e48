package domain

import (
	"errors"
	"net/http"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict detected")
	ErrComputation = errors.New("computation error")
	ErrDependency  = errors.New("dependency error")
)

// An Outcome classifies the result of a single trigger invocation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeValidation
	OutcomeNotFound
	OutcomeConflict
	OutcomeComputation
	OutcomeDependency
)

var outcomeNames = [...]string{
	OutcomeSuccess:     "success",
	OutcomeValidation:  "validation",
	OutcomeNotFound:    "not_found",
	OutcomeConflict:    "conflict",
	OutcomeComputation: "computation",
	OutcomeDependency:  "dependency",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// StatusCode maps the outcome to the status returned to the caller.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeValidation:
		return http.StatusBadRequest
	case OutcomeNotFound:
		return http.StatusNotFound
	case OutcomeConflict:
		return http.StatusConflict
	case OutcomeComputation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// OutcomeOf classifies err by the sentinel it wraps.
//
// A nil error is a success, an unknown error is a dependency failure.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrComputation):
		return OutcomeComputation
	default:
		return OutcomeDependency
	}
}
