package report

import (
	"sort"
	"time"

	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Section of the cashflow statement
type Section string

const (
	SectionOperating Section = "operating"
	SectionInvesting Section = "investing"
	SectionFinancing Section = "financing"
)

// Direction of a cashflow item
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

// CashflowItem is a node of the cashflow taxonomy
type CashflowItem struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	Code      string
	Name      string
	Section   Section
	Direction Direction
}

// Unclassified marks rows of transactions without a cashflow item
var Unclassified = uuid.Nil

// SourceRow is one completed, paid, non-transfer transaction as the builder
// sees it.
type SourceRow struct {
	Date           time.Time
	CashflowItemID uuid.UUID
	Sign           int
	Sum            valueobject.Money
}

// Key identifies an aggregate row. CompanyID and CashflowItemID use uuid.Nil
// for "none" so the tuple can be a unique key.
type Key struct {
	TenantID       uuid.UUID
	CompanyID      uuid.UUID
	CashflowItemID uuid.UUID
}

// Totals are the money figures every aggregate row carries
type Totals struct {
	Inflow  valueobject.Money
	Outflow valueobject.Money
	Count   int
}

// Net is inflow minus outflow
func (t Totals) Net() valueobject.Money {
	net, err := t.Inflow.Subtract(t.Outflow)
	if err != nil {
		return valueobject.Zero(t.Inflow.Currency())
	}
	return net
}

func (t Totals) add(o Totals) Totals {
	in, _ := t.Inflow.Add(o.Inflow)
	out, _ := t.Outflow.Add(o.Outflow)
	return Totals{Inflow: in, Outflow: out, Count: t.Count + o.Count}
}

func zeroTotals(cur valueobject.Currency) Totals {
	return Totals{Inflow: valueobject.Zero(cur), Outflow: valueobject.Zero(cur)}
}

// DailyRow aggregates one day of one cashflow item
type DailyRow struct {
	Key
	Day time.Time
	Totals
}

// MonthlyRow aggregates one month of one cashflow item
type MonthlyRow struct {
	Key
	Year  int
	Month int
	Totals
}

// SummaryRow is the all-time total of one cashflow item
type SummaryRow struct {
	Key
	Totals
}

// Day truncates t to a calendar day in UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AggregateDaily groups source rows by (day, cashflow item)
func AggregateDaily(tenantID, companyID uuid.UUID, currency valueobject.Currency, rows []SourceRow) []DailyRow {
	type dayKey struct {
		day  time.Time
		item uuid.UUID
	}
	acc := make(map[dayKey]Totals)
	for _, r := range rows {
		k := dayKey{day: Day(r.Date), item: r.CashflowItemID}
		t, ok := acc[k]
		if !ok {
			t = zeroTotals(currency)
		}
		if r.Sign < 0 {
			t = t.add(Totals{Inflow: valueobject.Zero(currency), Outflow: r.Sum, Count: 1})
		} else {
			t = t.add(Totals{Inflow: r.Sum, Outflow: valueobject.Zero(currency), Count: 1})
		}
		acc[k] = t
	}
	out := make([]DailyRow, 0, len(acc))
	for k, t := range acc {
		out = append(out, DailyRow{
			Key:    Key{TenantID: tenantID, CompanyID: companyID, CashflowItemID: k.item},
			Day:    k.day,
			Totals: t,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].CashflowItemID.String() < out[j].CashflowItemID.String()
	})
	return out
}

// RollupMonthly folds daily rows into month rows
func RollupMonthly(currency valueobject.Currency, daily []DailyRow) []MonthlyRow {
	type monthKey struct {
		Key
		year, month int
	}
	acc := make(map[monthKey]Totals)
	order := make([]monthKey, 0)
	for _, d := range daily {
		k := monthKey{Key: d.Key, year: d.Day.Year(), month: int(d.Day.Month())}
		t, ok := acc[k]
		if !ok {
			t = zeroTotals(currency)
			order = append(order, k)
		}
		acc[k] = t.add(d.Totals)
	}
	out := make([]MonthlyRow, 0, len(order))
	for _, k := range order {
		out = append(out, MonthlyRow{Key: k.Key, Year: k.year, Month: k.month, Totals: acc[k]})
	}
	return out
}

// Summarize folds month rows into per-item totals
func Summarize(currency valueobject.Currency, monthly []MonthlyRow) []SummaryRow {
	acc := make(map[Key]Totals)
	order := make([]Key, 0)
	for _, m := range monthly {
		t, ok := acc[m.Key]
		if !ok {
			t = zeroTotals(currency)
			order = append(order, m.Key)
		}
		acc[m.Key] = t.add(m.Totals)
	}
	out := make([]SummaryRow, 0, len(order))
	for _, k := range order {
		out = append(out, SummaryRow{Key: k, Totals: acc[k]})
	}
	return out
}

// Month is a calendar month
type Month struct {
	Year  int
	Month int
}

// MonthsBetween lists the calendar months touched by [from, to]
func MonthsBetween(from, to time.Time) []Month {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []Month
	for !cur.After(to) {
		out = append(out, Month{Year: cur.Year(), Month: int(cur.Month())})
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// Bounds returns the first and last day of the month
func (m Month) Bounds() (time.Time, time.Time) {
	first := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
