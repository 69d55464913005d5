package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes exposed to API clients.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeAlreadyAssigned      = "ALREADY_ASSIGNED"
	CodeNotAssignedAgent     = "NOT_ASSIGNED_AGENT"
	CodeTicketClosed         = "TICKET_CLOSED"
	CodeInvalidCode          = "INVALID_CODE"
	CodeAlreadyEscalated     = "ALREADY_ESCALATED"
	CodeEscalationNotPending = "ESCALATION_NOT_PENDING"
	CodeEscalationNotAcked   = "ESCALATION_NOT_ACKNOWLEDGED"
	CodeCodeExpired          = "CODE_EXPIRED"
	CodeTooManyAttempts      = "TOO_MANY_ATTEMPTS"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrValidation           = &DomainError{Code: CodeValidation}
	ErrNotFound             = &DomainError{Code: CodeNotFound}
	ErrUnauthorized         = &DomainError{Code: CodeUnauthorized}
	ErrForbidden            = &DomainError{Code: CodeForbidden}
	ErrConflict             = &DomainError{Code: CodeConflict}
	ErrAlreadyAssigned      = &DomainError{Code: CodeAlreadyAssigned}
	ErrNotAssignedAgent     = &DomainError{Code: CodeNotAssignedAgent}
	ErrTicketClosed         = &DomainError{Code: CodeTicketClosed}
	ErrInvalidCode          = &DomainError{Code: CodeInvalidCode}
	ErrAlreadyEscalated     = &DomainError{Code: CodeAlreadyEscalated}
	ErrEscalationNotPending = &DomainError{Code: CodeEscalationNotPending}
	ErrEscalationNotAcked   = &DomainError{Code: CodeEscalationNotAcked}
	ErrCodeExpired          = &DomainError{Code: CodeCodeExpired}
	ErrTooManyAttempts      = &DomainError{Code: CodeTooManyAttempts}
	ErrStoreUnavailable     = &DomainError{Code: CodeStoreUnavailable}
	ErrInternal             = &DomainError{Code: CodeInternal}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewAlreadyAssigned(ticketID string) error {
	return NewDomainError(CodeAlreadyAssigned, "ticket already has an assigned agent", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewNotAssignedAgent(ticketID string) error {
	return NewDomainError(CodeNotAssignedAgent, "only the assigned agent or a supervisor may act on this ticket", http.StatusForbidden,
		map[string]any{"ticket_id": ticketID})
}

func NewTicketClosed(ticketID, status string) error {
	return NewDomainError(CodeTicketClosed, "ticket is no longer open", http.StatusConflict,
		map[string]any{"ticket_id": ticketID, "status": status})
}

func NewInvalidCode() error {
	return NewDomainError(CodeInvalidCode, "verification code does not match", http.StatusUnprocessableEntity, nil)
}

func NewAlreadyEscalated(ticketID string) error {
	return NewDomainError(CodeAlreadyEscalated, "ticket already has an escalation", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewEscalationNotPending(escalationID, status string) error {
	return NewDomainError(CodeEscalationNotPending, "escalation is not awaiting acknowledgment", http.StatusConflict,
		map[string]any{"escalation_id": escalationID, "status": status})
}

func NewEscalationNotAcknowledged(escalationID, status string) error {
	return NewDomainError(CodeEscalationNotAcked, "escalation must be acknowledged first", http.StatusConflict,
		map[string]any{"escalation_id": escalationID, "status": status})
}

func NewCodeExpired() error {
	return NewDomainError(CodeCodeExpired, "verification code expired", http.StatusGone, nil)
}

func NewTooManyAttempts() error {
	return NewDomainError(CodeTooManyAttempts, "too many verification attempts", http.StatusTooManyRequests, nil)
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "entity store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if isUnavailable(err) {
		return NewStoreUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError while keeping the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
