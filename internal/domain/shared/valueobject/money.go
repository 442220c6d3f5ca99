package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the currency of the current deployment
const DefaultCurrency = RUB

// MoneyScale is the number of fractional digits money is persisted and
// serialized with.
const MoneyScale int32 = 2

// Money is an immutable fixed-point amount tagged with a currency.
// The zero value is not usable; build Money through the constructors.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyExact is NewMoney for amounts entered by users. Anything finer
// than MoneyScale is rejected rather than silently rounded on storage.
func NewMoneyExact(amount decimal.Decimal, currency Currency) (Money, error) {
	if !FitsScale(amount) {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("amount %s has more than %d decimal places", amount.String(), MoneyScale))
	}
	return NewMoney(amount, currency)
}

// FitsScale reports whether d is representable in whole minor units
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// NewMoneyFromString parses a decimal string such as "1234.50".
// NaN, infinities, exponents with garbage and empty input are rejected.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return Money{}, shared.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, shared.WrapDomainError(shared.CodeInvalidAmount, fmt.Sprintf("invalid amount %q", amount), err)
	}
	return NewMoneyExact(d, currency)
}

// NewMoneyFromMinor builds Money from an integer count of minor units and a
// scale, e.g. (123450, 2) is 1234.50.
func NewMoneyFromMinor(units int64, scale int32, currency Currency) (Money, error) {
	if scale < 0 {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "scale must not be negative")
	}
	return NewMoney(decimal.New(units, -scale), currency)
}

// MustMoney parses a literal amount in the default currency and panics on
// bad input. Intended for constants and tests.
func MustMoney(amount string) Money {
	m, err := NewMoneyFromString(amount, DefaultCurrency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code
func (m Money) Currency() Currency { return m.currency }

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return shared.NewDomainError(shared.CodeCurrencyMismatch,
			fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
	}
	return nil
}

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m - other
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Negate returns -m
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns |m|
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Multiply scales the amount by factor without rounding
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Percent returns percent% of m rounded half-up to the money scale
func (m Money) Percent(percent decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(MoneyScale),
		currency: m.currency,
	}
}

// Round rounds half-up to the money scale
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(MoneyScale), currency: m.currency}
}

// Compare returns -1, 0 or +1. Currencies must match.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equals requires the same currency and the same numeric value (1.5 == 1.50)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// WithinTolerance reports whether |m - other| <= eps
func (m Money) WithinTolerance(other Money, eps decimal.Decimal) (bool, error) {
	diff, err := m.Subtract(other)
	if err != nil {
		return false, err
	}
	return diff.amount.Abs().LessThanOrEqual(eps), nil
}

// Min returns the smaller of two amounts
func (m Money) Min(other Money) (Money, error) {
	c, err := m.Compare(other)
	if err != nil {
		return Money{}, err
	}
	if c <= 0 {
		return m, nil
	}
	return other, nil
}

// String renders "1234.50 RUB"
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale) + " " + string(m.currency)
}

// StringFixed renders the amount with the money scale
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MoneyScale)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON renders {"amount":"1234.50","currency":"RUB"}
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency})
}

// UnmarshalJSON parses the wire form; an omitted currency means DefaultCurrency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = DefaultCurrency
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds a list of amounts; an empty list yields zero in currency.
func Sum(currency Currency, items ...Money) (Money, error) {
	total := Zero(currency)
	for _, it := range items {
		next, err := total.Add(it)
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}
