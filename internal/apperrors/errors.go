/**
 * @description
 * Error taxonomy for the matching engine.
 * Typed errors so callers and handlers can match with errors.As and map each
 * kind to the right HTTP status and retry policy.
 *
 * @notes
 * - ValidationError / NotFoundError: returned immediately, never retried.
 * - ConflictError: a write lost a race or hit a terminal state; returned to
 *   the caller, the losing write is never silently dropped or queued.
 * - NoEligibleSupplierError: surfaced for manual admin resolution, never
 *   silently defaulted to an arbitrary supplier.
 * - Stale market data is NOT an error: results are flagged degraded instead.
 */

package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError signals bad caller input (empty category, non-positive amount, ...)
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("validation failed: %s", e.Msg)
}

// NewValidation builds a ValidationError for one field
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// NotFoundError signals an unknown auction/requirement/supplier
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError signals a state conflict: bid after close, write lost a race,
// transition attempted from a terminal state.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// NewConflict builds a ConflictError
func NewConflict(format string, v ...interface{}) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, v...)}
}

// NoEligibleSupplierError signals that a selection run exhausted every
// candidate against the risk thresholds.
type NoEligibleSupplierError struct {
	RequirementID string
	Candidates    int
	Reason        string
}

func (e *NoEligibleSupplierError) Error() string {
	return fmt.Sprintf("no eligible supplier for requirement %s (%d candidates): %s",
		e.RequirementID, e.Candidates, e.Reason)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNoEligibleSupplier reports whether err is a NoEligibleSupplierError
func IsNoEligibleSupplier(err error) bool {
	var target *NoEligibleSupplierError
	return errors.As(err, &target)
}
