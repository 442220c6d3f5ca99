package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeOperationTimedOut is returned when a write gave up waiting for a lock
	ErrCodeOperationTimedOut = "ERR_OPERATION_TIMED_OUT"
)

// Validation error codes
const (
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeInvalidAmount    = "ERR_INVALID_AMOUNT"
	ErrCodeCurrencyMismatch = "ERR_CURRENCY_MISMATCH"
	ErrCodeSameCashBox      = "ERR_SAME_CASH_BOX"
	ErrCodeCrossTenant      = "ERR_CROSS_TENANT_TRANSFER"
	ErrCodeAssignmentMode   = "ERR_ASSIGNMENT_MODE"
	ErrCodeAllocationSum    = "ERR_ALLOCATION_SUM_MISMATCH"
	ErrCodeDuplicateAlloc   = "ERR_DUPLICATE_ALLOCATION"
)

// Authentication error codes
const (
	ErrCodeUnauthorized  = "ERR_UNAUTHORIZED"
	ErrCodeForbidden     = "ERR_FORBIDDEN"
	ErrCodeTokenExpired  = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid  = "ERR_TOKEN_INVALID"
	ErrCodeCompanyDenied = "ERR_COMPANY_FORBIDDEN"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeCashBoxInUse        = "ERR_CASH_BOX_IN_USE"
	ErrCodeAlreadyCompleted    = "ERR_TRANSACTION_ALREADY_COMPLETED"
	ErrCodePeriodClosed        = "ERR_PERIOD_CLOSED"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInsufficientFunds = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeTypeNotFound      = "ERR_TRANSACTION_TYPE_NOT_FOUND"
	ErrCodeCashBoxArchived   = "ERR_CASH_BOX_ARCHIVED"
	ErrCodeNotAssignable     = "ERR_FINANCE_OBJECT_NOT_ASSIGNABLE"
	ErrCodeAccrualOverpaid   = "ERR_ACCRUAL_OVERPAID"
	ErrCodeRateLimited       = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:           http.StatusInternalServerError,
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeOperationTimedOut: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeInvalidAmount:    http.StatusBadRequest,
	ErrCodeCurrencyMismatch: http.StatusBadRequest,
	ErrCodeSameCashBox:      http.StatusBadRequest,
	ErrCodeCrossTenant:      http.StatusBadRequest,
	ErrCodeAssignmentMode:   http.StatusBadRequest,
	ErrCodeAllocationSum:    http.StatusBadRequest,
	ErrCodeDuplicateAlloc:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeTokenExpired:  http.StatusUnauthorized,
	ErrCodeTokenInvalid:  http.StatusUnauthorized,
	ErrCodeCompanyDenied: http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeCashBoxInUse:        http.StatusConflict,
	ErrCodeAlreadyCompleted:    http.StatusConflict,
	ErrCodePeriodClosed:        http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientFunds: http.StatusUnprocessableEntity,
	ErrCodeTypeNotFound:      http.StatusUnprocessableEntity,
	ErrCodeCashBoxArchived:   http.StatusUnprocessableEntity,
	ErrCodeNotAssignable:     http.StatusUnprocessableEntity,
	ErrCodeAccrualOverpaid:   http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to wire codes whose names
// differ from a plain ERR_ prefix
var DomainErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR": ErrCodeValidation,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the wire format.
// Codes already in the wire format pass through unchanged.
func NormalizeErrorCode(code string) string {
	if wire, ok := DomainErrorCodeMapping[code]; ok {
		return wire
	}
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
