// Package errors provides custom error types for the Magnate API.
// All service-layer errors should use AppError so callers can branch on
// the error code instead of matching message strings, and so responses
// never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized     = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden        = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrPermissionDenied = &AppError{Code: "PERMISSION_DENIED", Message: "Actor lacks the required capability", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Ledger errors.
var (
	ErrAccountNotFound     = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrInvalidAmount       = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be a positive integer in minor units", StatusCode: http.StatusBadRequest}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient account balance", StatusCode: http.StatusBadRequest}
	ErrOverflowDetected    = &AppError{Code: "OVERFLOW_DETECTED", Message: "Amount exceeds the safe integer range", StatusCode: http.StatusBadRequest}
)

// Trading errors.
var (
	ErrAssetNotFound        = &AppError{Code: "ASSET_NOT_FOUND", Message: "Asset not found", StatusCode: http.StatusNotFound}
	ErrInsufficientHoldings = &AppError{Code: "INSUFFICIENT_HOLDINGS", Message: "Insufficient holdings for this sale", StatusCode: http.StatusBadRequest}
	ErrHoldingLimitExceeded = &AppError{Code: "HOLDING_LIMIT_EXCEEDED", Message: "Purchase would exceed the per-account holding limit", StatusCode: http.StatusBadRequest}
	ErrDuplicateTicker      = &AppError{Code: "DUPLICATE_TICKER", Message: "An asset with this ticker already exists", StatusCode: http.StatusConflict}
	ErrCompanyNotPublic     = &AppError{Code: "COMPANY_NOT_PUBLIC", Message: "Company has not gone public", StatusCode: http.StatusBadRequest}
)

// Loan errors.
var (
	ErrLoanNotFound = &AppError{Code: "LOAN_NOT_FOUND", Message: "Loan not found", StatusCode: http.StatusNotFound}
	ErrLoanTooLarge = &AppError{Code: "LOAN_TOO_LARGE", Message: "Loan principal exceeds the maximum allowed", StatusCode: http.StatusBadRequest}
	ErrLoanNotOpen  = &AppError{Code: "LOAN_NOT_OPEN", Message: "Loan is not active", StatusCode: http.StatusBadRequest}
)

// Tick errors.
var (
	ErrTickInProgress = &AppError{Code: "TICK_IN_PROGRESS", Message: "A simulation tick is already running", StatusCode: http.StatusConflict}
)
