package contract

import (
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		paid, total string
		want        PaymentStatus
	}{
		{"0", "100", PaymentNotPaid},
		{"50", "100", PaymentPartiallyPaid},
		{"100", "100", PaymentFullyPaid},
		{"150", "100", PaymentOverpaid},
		{"0", "0", PaymentNotPaid},
		{"10", "0", PaymentOverpaid},
		{"10", "-5", PaymentOverpaid},
		{"-1", "100", PaymentNotPaid},
		{"99.99", "100", PaymentPartiallyPaid},
		{"100.01", "100", PaymentOverpaid},
	}
	for _, tt := range tests {
		got, err := DeriveStatus(valueobject.MustMoney(tt.paid), valueobject.MustMoney(tt.total))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "paid=%s total=%s", tt.paid, tt.total)
	}
}

func TestDeriveStatusCurrencyMismatch(t *testing.T) {
	usd, err := valueobject.NewMoneyFromString("10", valueobject.USD)
	require.NoError(t, err)
	_, err = DeriveStatus(valueobject.MustMoney("5"), usd)
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestApplyPaid(t *testing.T) {
	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())
	c := NewContract(scope, "7", valueobject.MustMoney("500"), nil)

	changed, err := c.ApplyPaid(valueobject.MustMoney("500"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentFullyPaid, c.PaymentStatus)
	assert.NotNil(t, c.RecalcAt)

	changed, err = c.ApplyPaid(valueobject.MustMoney("500.00"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestChangeStatus(t *testing.T) {
	scope := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
	c := NewContract(scope, "1", valueobject.MustMoney("100"), nil)
	first, second := uuid.New(), uuid.New()

	prev, err := c.ChangeStatus(first)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = c.ChangeStatus(second)
	require.NoError(t, err)
	assert.Equal(t, first, *prev)
	assert.Equal(t, second, *c.StatusID)

	_, err = c.ChangeStatus(uuid.Nil)
	assert.Error(t, err)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		code, name           string
		cancelled, completed bool
	}{
		{"CANCELLED", "Cancelled", true, false},
		{"rejected", "", true, false},
		{"st_9", "Отменён", true, false},
		{"st_10", "ОТКАЗ клиента", true, false},
		{"DONE", "Done", false, true},
		{"st_3", "Выполнен", false, true},
		{"st_4", "Монтаж завершён", false, true},
		{"in_progress", "В работе", false, false},
		{"closed_cancel", "", true, false},
	}
	for _, tt := range tests {
		s := &Status{ID: uuid.New(), Code: tt.code, Name: tt.name}
		assert.Equal(t, tt.cancelled, s.IsCancelled(), tt.code)
		assert.Equal(t, tt.completed, s.IsCompleted(), tt.code)
	}

	var none *Status
	assert.False(t, none.IsCancelled())
	assert.False(t, none.IsCompleted())
}

func TestTemplateCovers(t *testing.T) {
	tpl := &Template{ProductTypes: []string{"septic", "install"}}
	assert.True(t, tpl.Covers("septic"))
	assert.False(t, tpl.Covers("pump"))
	assert.False(t, (&Template{}).Covers("septic"))
}
