package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches two domain errors by code so that errors.Is(err, ErrNotFound)
// holds for any not-found error regardless of its message.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Retryable reports whether the caller may retry the operation unchanged.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeOperationTimedOut
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodeNotFound                   = "NOT_FOUND"
	CodeAlreadyExists              = "ALREADY_EXISTS"
	CodeInvalidInput               = "INVALID_INPUT"
	CodeInvalidState               = "INVALID_STATE"
	CodeConcurrencyConflict        = "CONCURRENCY_CONFLICT"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeForbidden                  = "FORBIDDEN"
	CodeInvalidAmount              = "INVALID_AMOUNT"
	CodeCurrencyMismatch           = "CURRENCY_MISMATCH"
	CodeInsufficientFunds          = "INSUFFICIENT_FUNDS"
	CodeTransactionAlreadyComplete = "TRANSACTION_ALREADY_COMPLETED"
	CodeTransactionTypeNotFound    = "TRANSACTION_TYPE_NOT_FOUND"
	CodeSameCashBox                = "SAME_CASH_BOX"
	CodeCrossTenantTransfer        = "CROSS_TENANT_TRANSFER"
	CodeCashBoxArchived            = "CASH_BOX_ARCHIVED"
	CodeCashBoxInUse               = "CASH_BOX_IN_USE"
	CodeAssignmentMode             = "ASSIGNMENT_MODE"
	CodeAllocationSumMismatch      = "ALLOCATION_SUM_MISMATCH"
	CodeDuplicateAllocation        = "DUPLICATE_ALLOCATION"
	CodeFinanceObjectNotAssignable = "FINANCE_OBJECT_NOT_ASSIGNABLE"
	CodeAccrualOverpaid            = "ACCRUAL_OVERPAID"
	CodePeriodClosed               = "PERIOD_CLOSED"
	CodeOperationTimedOut          = "OPERATION_TIMED_OUT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")

	ErrInvalidAmount               = NewDomainError(CodeInvalidAmount, "Amount is not a valid finite decimal")
	ErrCurrencyMismatch            = NewDomainError(CodeCurrencyMismatch, "Currencies do not match")
	ErrInsufficientFunds           = NewDomainError(CodeInsufficientFunds, "Insufficient funds in cash box")
	ErrTransactionAlreadyCompleted = NewDomainError(CodeTransactionAlreadyComplete, "Transaction is already completed")
	ErrTransactionTypeNotFound     = NewDomainError(CodeTransactionTypeNotFound, "Transaction type not found in catalog")
	ErrSameCashBox                 = NewDomainError(CodeSameCashBox, "Source and destination cash boxes must differ")
	ErrCrossTenantTransfer         = NewDomainError(CodeCrossTenantTransfer, "Cash boxes belong to different tenants or companies")
	ErrCashBoxArchived             = NewDomainError(CodeCashBoxArchived, "Cash box is archived")
	ErrCashBoxInUse                = NewDomainError(CodeCashBoxInUse, "Cash box is referenced by ledger records")
	ErrAssignmentMode              = NewDomainError(CodeAssignmentMode, "Exactly one of finance object or allocations must be provided")
	ErrAllocationSumMismatch       = NewDomainError(CodeAllocationSumMismatch, "Allocation amounts do not sum to the transaction amount")
	ErrDuplicateAllocation         = NewDomainError(CodeDuplicateAllocation, "Finance object appears more than once in allocations")
	ErrFinanceObjectNotAssignable  = NewDomainError(CodeFinanceObjectNotAssignable, "Finance object does not accept new money")
	ErrAccrualOverpaid             = NewDomainError(CodeAccrualOverpaid, "Payout amount exceeds accrual remaining balance")
	ErrPeriodClosed                = NewDomainError(CodePeriodClosed, "Reporting period is closed")
	ErrOperationTimedOut           = NewDomainError(CodeOperationTimedOut, "Operation timed out waiting for a lock, retry later")
)

// IsRetryable reports whether err is a domain error the caller may retry as is.
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return false
}
