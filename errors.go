package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a scenario was rejected
type ErrorKind int

const (
	InvalidParameter ErrorKind = iota // Out-of-range or malformed scalar input
	InvalidFrequency                  // Unrecognised frequency name
	InvalidDuration                   // Horizon resolves to zero periods
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidFrequency:
		return "InvalidFrequency"
	case InvalidDuration:
		return "InvalidDuration"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is matching
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDuration  = errors.New("invalid duration")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidFrequency:
		return ErrInvalidFrequency
	case InvalidDuration:
		return ErrInvalidDuration
	default:
		return ErrInvalidParameter
	}
}

// ScenarioError is returned for any rejected scenario input
type ScenarioError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *ScenarioError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
}

// Unwrap lets errors.Is match the kind's sentinel
func (e *ScenarioError) Unwrap() error {
	return e.Kind.sentinel()
}

func invalidParameter(field, format string, args ...any) error {
	return &ScenarioError{Kind: InvalidParameter, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrorKindOf reports the kind of a scenario error anywhere in err's chain
func ErrorKindOf(err error) (ErrorKind, bool) {
	var se *ScenarioError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
