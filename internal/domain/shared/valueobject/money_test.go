package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromString(t *testing.T) {
	t.Run("parses decimal string exactly", func(t *testing.T) {
		m, err := NewMoneyFromString("1234.5", RUB)
		require.NoError(t, err)
		assert.Equal(t, RUB, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("1234.50")))
	})

	t.Run("rejects non numeric input", func(t *testing.T) {
		for _, in := range []string{"", "  ", "abc", "NaN", "Inf", "12,50"} {
			_, err := NewMoneyFromString(in, RUB)
			assert.ErrorIs(t, err, shared.ErrInvalidAmount, in)
		}
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoneyFromString("1", "")
		assert.Error(t, err)
	})
}

func TestNewMoneyExact(t *testing.T) {
	for _, in := range []string{"0.01", "99.99", "1.500", "-3.10"} {
		_, err := NewMoneyExact(decimal.RequireFromString(in), RUB)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"0.001", "99.995", "-0.005"} {
		_, err := NewMoneyExact(decimal.RequireFromString(in), RUB)
		assert.ErrorIs(t, err, shared.ErrInvalidAmount, in)
	}

	_, err := NewMoneyFromString("12.345", RUB)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestNewMoneyFromMinor(t *testing.T) {
	m, err := NewMoneyFromMinor(123450, 2, RUB)
	require.NoError(t, err)
	assert.Equal(t, "1234.50", m.StringFixed())

	_, err = NewMoneyFromMinor(1, -1, RUB)
	assert.Error(t, err)
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	a := MustMoney("0.1")
	b := MustMoney("0.2")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equals(MustMoney("0.3")))

	diff, err := sum.Subtract(MustMoney("0.3"))
	require.NoError(t, err)
	assert.True(t, diff.IsZero())

	assert.True(t, a.Negate().IsNegative())
	assert.True(t, a.Negate().Abs().Equals(a))
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	rub := MustMoney("10")
	usd, err := NewMoneyFromString("10", USD)
	require.NoError(t, err)

	_, err = rub.Add(usd)
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	_, err = rub.Subtract(usd)
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	_, err = rub.Compare(usd)
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	assert.False(t, rub.Equals(usd))
}

func TestMoneyCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.00", "1", 0},
		{"0.99", "1", -1},
		{"100.01", "100", 1},
		{"-5", "0", -1},
	}
	for _, tt := range tests {
		got, err := MustMoney(tt.a).Compare(MustMoney(tt.b))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.a, tt.b)
	}
}

func TestMoneyPercent(t *testing.T) {
	assert.Equal(t, "200.00", MustMoney("2000").Percent(decimal.NewFromInt(10)).StringFixed())
	assert.Equal(t, "0.34", MustMoney("3.33").Percent(decimal.RequireFromString("10.2")).StringFixed())
}

func TestMoneyWithinTolerance(t *testing.T) {
	eps := decimal.RequireFromString("0.01")

	ok, err := MustMoney("300").WithinTolerance(MustMoney("300.01"), eps)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MustMoney("300").WithinTolerance(MustMoney("300.02"), eps)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMoneyJSON(t *testing.T) {
	t.Run("marshal uses two decimals", func(t *testing.T) {
		data, err := json.Marshal(MustMoney("1234.5"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"1234.50","currency":"RUB"}`, string(data))
	})

	t.Run("unmarshal defaults currency", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"99.99"}`), &m))
		assert.Equal(t, RUB, m.Currency())
		assert.True(t, m.Equals(MustMoney("99.99")))
	})

	t.Run("unmarshal rejects garbage", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`{"amount":"ten","currency":"RUB"}`), &m))
	})
}

func TestSum(t *testing.T) {
	total, err := Sum(RUB, MustMoney("200"), MustMoney("100"), MustMoney("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "300.50", total.StringFixed())

	empty, err := Sum(RUB)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
