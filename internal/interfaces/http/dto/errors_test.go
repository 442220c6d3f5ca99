package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeSameCashBox, http.StatusBadRequest},
		{ErrCodeAllocationSum, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeCompanyDenied, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyCompleted, http.StatusConflict},
		{ErrCodeCashBoxInUse, http.StatusConflict},
		{ErrCodePeriodClosed, http.StatusConflict},
		{ErrCodeInsufficientFunds, http.StatusUnprocessableEntity},
		{ErrCodeAccrualOverpaid, http.StatusUnprocessableEntity},
		{ErrCodeOperationTimedOut, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INSUFFICIENT_FUNDS", ErrCodeInsufficientFunds},
		{"TRANSACTION_ALREADY_COMPLETED", ErrCodeAlreadyCompleted},
		{"CROSS_TENANT_TRANSFER", ErrCodeCrossTenant},
		{"OPERATION_TIMED_OUT", ErrCodeOperationTimedOut},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INTERNAL_ERROR", ErrCodeInternal},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainCodesHaveStatus(t *testing.T) {
	// every code the domain raises maps to a non-500 status
	domainCodes := []string{
		"NOT_FOUND", "ALREADY_EXISTS", "INVALID_INPUT", "INVALID_STATE", "CONCURRENCY_CONFLICT",
		"UNAUTHORIZED", "FORBIDDEN", "INVALID_AMOUNT", "CURRENCY_MISMATCH", "INSUFFICIENT_FUNDS",
		"TRANSACTION_ALREADY_COMPLETED", "TRANSACTION_TYPE_NOT_FOUND", "SAME_CASH_BOX",
		"CROSS_TENANT_TRANSFER", "CASH_BOX_ARCHIVED", "CASH_BOX_IN_USE", "ASSIGNMENT_MODE",
		"ALLOCATION_SUM_MISMATCH", "DUPLICATE_ALLOCATION", "FINANCE_OBJECT_NOT_ASSIGNABLE",
		"ACCRUAL_OVERPAID", "PERIOD_CLOSED", "OPERATION_TIMED_OUT",
	}
	for _, code := range domainCodes {
		status := GetHTTPStatus(NormalizeErrorCode(code))
		assert.NotEqual(t, http.StatusInternalServerError, status, code)
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "sum", Message: "Must be greater than zero"},
		{Field: "cash_box_id", Message: "This field is required"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"field":"sum"`)
	assert.NotContains(t, string(raw), `"data"`)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(41), resp.Meta.Total)

	empty := NewSuccessResponseWithMeta(nil, 10, 1, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestDateRangeRequest_Parse(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to the last 30 days", func(t *testing.T) {
		from, to, err := DateRangeRequest{}.Parse(now)
		require.NoError(t, err)
		assert.Equal(t, now, to)
		assert.Equal(t, now.AddDate(0, 0, -30), from)
	})

	t.Run("explicit window includes the whole last day", func(t *testing.T) {
		from, to, err := DateRangeRequest{From: "2026-03-01", To: "2026-03-10"}.Parse(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 999999999, time.UTC), to)
	})

	t.Run("bad date", func(t *testing.T) {
		_, _, err := DateRangeRequest{From: "03/01/2026"}.Parse(now)
		assert.Error(t, err)
	})
}
