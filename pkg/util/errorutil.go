package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API clients. Clients branch on these codes,
// never on message text.
const (
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeAccountBlocked       = "ACCOUNT_BLOCKED"
	CodeNotOwner             = "NOT_OWNER"
	CodeNotAdmin             = "NOT_ADMIN"
	CodeNotAssignedStaff     = "NOT_ASSIGNED_STAFF"
	CodeNotPending           = "NOT_PENDING"
	CodeAlreadyAssigned      = "ALREADY_ASSIGNED"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeAlreadyUpvoted       = "ALREADY_UPVOTED"
	CodeSelfUpvoteForbidden  = "SELF_UPVOTE_FORBIDDEN"
	CodeQuotaExceeded        = "QUOTA_EXCEEDED"
	CodeAlreadyPremium       = "ALREADY_PREMIUM"
	CodeAlreadyBoosted       = "ALREADY_BOOSTED"
	CodeDuplicateTransaction = "DUPLICATE_TRANSACTION"
	CodeUnknownStaff         = "UNKNOWN_STAFF"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
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
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
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

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewAccountBlocked() error {
	return NewDomainError(CodeAccountBlocked, "account is blocked", http.StatusForbidden, nil)
}

func NewNotOwner() error {
	return NewDomainError(CodeNotOwner, "only the reporting citizen may perform this action", http.StatusForbidden, nil)
}

func NewNotAdmin() error {
	return NewDomainError(CodeNotAdmin, "admin role required", http.StatusForbidden, nil)
}

func NewNotAssignedStaff() error {
	return NewDomainError(CodeNotAssignedStaff, "issue is not assigned to you", http.StatusForbidden, nil)
}

func NewNotPending(status string) error {
	return NewDomainError(CodeNotPending, "issue is no longer pending", http.StatusConflict, map[string]any{"status": status})
}

func NewAlreadyAssigned() error {
	return NewDomainError(CodeAlreadyAssigned, "issue already has an assigned staff member", http.StatusConflict, nil)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, "status transition is not allowed", http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewAlreadyUpvoted() error {
	return NewDomainError(CodeAlreadyUpvoted, "issue already upvoted by this account", http.StatusConflict, nil)
}

func NewSelfUpvoteForbidden() error {
	return NewDomainError(CodeSelfUpvoteForbidden, "cannot upvote your own issue", http.StatusForbidden, nil)
}

func NewQuotaExceeded(limit int) error {
	return NewDomainError(CodeQuotaExceeded, "free submission quota exhausted", http.StatusForbidden, map[string]any{"limit": limit})
}

func NewAlreadyPremium() error {
	return NewDomainError(CodeAlreadyPremium, "account already has premium access", http.StatusConflict, nil)
}

func NewAlreadyBoosted() error {
	return NewDomainError(CodeAlreadyBoosted, "issue priority is already high", http.StatusConflict, nil)
}

func NewDuplicateTransaction(transactionID string) error {
	return NewDomainError(CodeDuplicateTransaction, "transaction already recorded", http.StatusConflict, map[string]any{
		"transaction_id": transactionID,
	})
}

func NewUnknownStaff(email string) error {
	return NewDomainError(CodeUnknownStaff, "no staff account with that email", http.StatusUnprocessableEntity, map[string]any{
		"email": email,
	})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
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
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
