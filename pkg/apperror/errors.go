package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
// Engine errors are recoverable: the orchestrator folds them into the
// result envelope instead of letting them escape.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Logic (LED) ----

// ErrInvalidTransition reports an illegal deposit status change,
// carrying the attempted pair and the allowed destination set.
func ErrInvalidTransition(from, to string, allowed []string) *AppError {
	return New("LED_001",
		fmt.Sprintf("Invalid status transition: %s -> %s. Allowed transitions: %v", from, to, allowed),
		http.StatusUnprocessableEntity)
}

// ErrConcurrentModification reports a lost optimistic-version race.
// The caller must reload the deposit and retry explicitly.
func ErrConcurrentModification(depositID string) *AppError {
	return New("LED_002",
		fmt.Sprintf("Deposit %s was modified concurrently. Please refresh and try again.", depositID),
		http.StatusConflict)
}

// ErrConversionUnavailable reports that no exchange rate exists for the
// ordered currency pair.
func ErrConversionUnavailable(from, to string) *AppError {
	return New("LED_003",
		fmt.Sprintf("Cannot convert %s to %s. No exchange rate available.", from, to),
		http.StatusUnprocessableEntity)
}

// ErrInsufficientBalance reports a debit that would take a wallet negative.
func ErrInsufficientBalance(current, required float64) *AppError {
	return New("LED_004",
		fmt.Sprintf("Insufficient balance. Current: %.2f, Required: %.2f", current, required),
		http.StatusPaymentRequired)
}

// ErrNotFound reports a missing deposit or wallet.
func ErrNotFound(entity string) *AppError {
	return New("LED_005", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// Validation returns a LED_006 input validation error.
func Validation(message string) *AppError {
	return New("LED_006", message, http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

// ErrPersistence wraps a failed write to the underlying store.
func ErrPersistence(err error) *AppError {
	return Wrap("SYS_001", "Persistent store write failed", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_002 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal server error", http.StatusInternalServerError, err)
}
