// Package errors provides custom error types for the Nagar Palika assistant.
//
// Each error type carries enough context for a caller (HTTP handler,
// Telegram surface, terminal client) to pick a reply without string
// matching. Helpers use errors.As so wrapped errors are still recognised.
package errors

import (
	stderrors "errors"
	"fmt"
)

// InvariantError signals a broken internal guarantee.
//
// It is never returned to callers. Code that detects an impossible state
// panics with an *InvariantError so the failure is loud in tests and logs.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s", e.Message)
}

// NewInvariantError creates a new invariant error with a formatted message
func NewInvariantError(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// SessionActiveError is returned when an entry point tries to open a
// guided flow while another one is still waiting for input.
//
// Recovery strategy: finish or abandon the active flow first
type SessionActiveError struct {
	Active string // "complaint" or "resolution"
}

func (e *SessionActiveError) Error() string {
	return fmt.Sprintf("session already active: %s", e.Active)
}

// NewSessionActiveError creates a new session active error
func NewSessionActiveError(active string) *SessionActiveError {
	return &SessionActiveError{Active: active}
}

// NotFoundError indicates a lookup by id found nothing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// NotEligibleError is returned when a resolution check is requested for a
// complaint that is not resolved or already has feedback.
type NotEligibleError struct {
	ComplaintID string
	Status      string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("complaint %s not eligible for resolution check (status %s)", e.ComplaintID, e.Status)
}

// NewNotEligibleError creates a new not eligible error
func NewNotEligibleError(id, status string) *NotEligibleError {
	return &NotEligibleError{ComplaintID: id, Status: status}
}

// BusyError is returned when the turn queue is full.
//
// Recovery strategy: wait for the typing indicator to clear and resend
type BusyError struct {
	Pending int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("assistant busy: %d turns already queued", e.Pending)
}

// NewBusyError creates a new busy error
func NewBusyError(pending int) *BusyError {
	return &BusyError{Pending: pending}
}

// ValidationError reports bad input on a named field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// DeliveryError wraps failures talking to an outside service
// (Telegram, translation). These never affect conversation state.
type DeliveryError struct {
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("delivery error: %s", e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new delivery error with context
func NewDeliveryError(msg string, err error) *DeliveryError {
	return &DeliveryError{Message: msg, Err: err}
}

// IsSessionActive checks if the error is a session active error
func IsSessionActive(err error) bool {
	var target *SessionActiveError
	return stderrors.As(err, &target)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

// IsNotEligible checks if the error is a not eligible error
func IsNotEligible(err error) bool {
	var target *NotEligibleError
	return stderrors.As(err, &target)
}

// IsBusy checks if the error is a busy error
func IsBusy(err error) bool {
	var target *BusyError
	return stderrors.As(err, &target)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsDelivery checks if the error is a delivery error
func IsDelivery(err error) bool {
	var target *DeliveryError
	return stderrors.As(err, &target)
}
