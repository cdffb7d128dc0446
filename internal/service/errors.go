package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrShiftNotFound      = errors.New("shift not found")
	ErrShiftNotActive     = errors.New("shift is not active")
	ErrActiveShiftExists  = errors.New("an active shift already exists for this staff member or pump")
	ErrForbidden          = errors.New("not allowed to act on this shift")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDraftIncomplete    = errors.New("shift data could not be fully loaded, please try again")
)

// Advisory warnings. They travel next to a successful result and never
// change its outcome.
const (
	WarnVarianceExceedsThreshold = "variance_exceeds_threshold"
	WarnNoStaffAvailable         = "no_staff_available"
	WarnSuccessorFailed          = "successor_failed"
)

// ValidationError rejects input before any storage call is made.
// Fields maps the offending field to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LoadError is a read failure that was absorbed: the caller still gets a
// zeroed dataset.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Source, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed write while closing or opening a shift.
// The cause is logged; clients only see a generic message.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
