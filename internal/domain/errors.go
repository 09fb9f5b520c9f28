package domain

import (
	"errors"
	"fmt"
)

// ValidationError covers malformed input: bad payloads, bad check-in codes,
// amounts that cannot be transmitted to the provider.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation error"
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

// SignatureError marks a webhook whose HMAC did not verify. Always
// acknowledged with 200 at the HTTP boundary, logged as a security event.
type SignatureError struct {
	Reason string
}

func (e SignatureError) Error() string {
	if e.Reason == "" {
		return "signature verification failed"
	}
	return "signature verification failed: " + e.Reason
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// DuplicateEventError signals the idempotency fence: the operation was
// already applied for this correlation id. Callers treat it as a no-op.
type DuplicateEventError struct {
	CorrelationID string
	Operation     string
}

func (e DuplicateEventError) Error() string {
	return fmt.Sprintf("duplicate %s event for %s", e.Operation, e.CorrelationID)
}

type InsufficientFundsError struct {
	UserID    int64
	Requested int64
	Available int64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.Requested, e.Available)
}

// ProviderError wraps a failed outbound call to the payment provider after
// retries were exhausted.
type ProviderError struct {
	Op  string
	Err error
}

func (e ProviderError) Error() string {
	if e.Err == nil {
		return "provider call failed: " + e.Op
	}
	return fmt.Sprintf("provider call failed: %s: %v", e.Op, e.Err)
}

func (e ProviderError) Unwrap() error { return e.Err }

// LedgerConsistencyError is an invariant violation inside a ledger mutation
// (negative balance computed, before/after mismatch). The surrounding
// transaction must abort; the condition is never clamped.
type LedgerConsistencyError struct {
	WalletID int64
	Msg      string
}

func (e LedgerConsistencyError) Error() string {
	return fmt.Sprintf("ledger consistency violation on wallet %d: %s", e.WalletID, e.Msg)
}

// NotAuthorizedError covers callers acting on resources they do not own
// (check-in by a non-owner, escrow release by a stranger).
type NotAuthorizedError struct {
	Msg string
}

func (e NotAuthorizedError) Error() string {
	if e.Msg == "" {
		return "not authorized"
	}
	return e.Msg
}

// ConflictError covers state-machine violations: transitions along illegal
// edges, releases blocked by an open dispute.
type ConflictError struct {
	Resource string
	Msg      string
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsSignature(err error) bool {
	var target SignatureError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsDuplicateEvent(err error) bool {
	var target DuplicateEventError
	return errors.As(err, &target)
}

func IsInsufficientFunds(err error) bool {
	var target InsufficientFundsError
	return errors.As(err, &target)
}

func IsProvider(err error) bool {
	var target ProviderError
	return errors.As(err, &target)
}

func IsLedgerConsistency(err error) bool {
	var target LedgerConsistencyError
	return errors.As(err, &target)
}

func IsNotAuthorized(err error) bool {
	var target NotAuthorizedError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// Retryable reports whether a failed webhook task is worth re-running.
// Validation, signature, duplicate, not-found and authorization failures
// will fail the same way every time; everything else may be transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case IsValidation(err), IsSignature(err), IsDuplicateEvent(err),
		IsNotFound(err), IsNotAuthorized(err), IsConflict(err),
		IsInsufficientFunds(err):
		return false
	default:
		return true
	}
}
