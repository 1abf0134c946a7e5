package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	// ErrConflict marks state conflicts such as selling a unit that is not available.
	ErrConflict = errors.New("conflict")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrReconciliationGap is matched by every *ReconciliationGapError.
	ErrReconciliationGap = errors.New("reconciliation gap")
)

// NotFoundError names the missing entity. errors.Is(err, ErrorRecordNotFound) holds.
type NotFoundError struct {
	Entity string
	Id     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Id)
}

func (e *NotFoundError) Unwrap() error { return ErrorRecordNotFound }

func NewNotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, Id: id}
}

// ValidationError maps field names to the rule they broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ConflictError wraps ErrConflict with the offending entity.
type ConflictError struct {
	Entity string
	Id     any
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Entity, e.Id, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflict(entity string, id any, reason string) error {
	return &ConflictError{Entity: entity, Id: id, Reason: reason}
}

// ReconciliationGapError reports a ledger transaction that should exist but does not.
// It is a warning: the business operation that found it still completes.
type ReconciliationGapError struct {
	ReferenceId     int
	TransactionType string
	Step            string
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("reconciliation gap: no %s transaction for reference %d during %s",
		e.TransactionType, e.ReferenceId, e.Step)
}

func (e *ReconciliationGapError) Unwrap() error { return ErrReconciliationGap }

// CalculationDegradation reports stored JSON that could not be decoded and was replaced by a default.
type CalculationDegradation struct {
	Source string
	Cause  error
}

func (e *CalculationDegradation) Error() string {
	return fmt.Sprintf("degraded decode of %s: %v", e.Source, e.Cause)
}

func (e *CalculationDegradation) Unwrap() error { return e.Cause }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
