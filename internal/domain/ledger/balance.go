package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Purse is the part of a box's money one tenant sees and spends. A tenant
// box is a single purse. A shared box keeps a purse per tenant, carved out
// by the tenant stamped on each transaction, so one tenant can never spend
// what another deposited.
type Purse struct {
	CashBoxID uuid.UUID
	Currency  valueobject.Currency
	TenantID  *uuid.UUID
	// Pooled marks a purse inside a shared box; reads filter by TenantID
	Pooled bool
}

// PurseOf returns the purse tenantID draws on in b
func (b *CashBox) PurseOf(tenantID uuid.UUID) Purse {
	if b.TenantID != nil {
		return Purse{CashBoxID: b.ID, Currency: b.Currency, TenantID: b.TenantID}
	}
	return Purse{CashBoxID: b.ID, Currency: b.Currency, TenantID: &tenantID, Pooled: true}
}

// LedgerEntry is the minimum a balance replay needs from a transaction row
type LedgerEntry struct {
	Sum       valueobject.Money
	Sign      Sign
	Completed bool
}

// ReplayBalance is the reference balance: the signed sum of completed entries.
// Any stored or aggregated balance must agree with it.
func ReplayBalance(currency valueobject.Currency, entries []LedgerEntry) (valueobject.Money, error) {
	balance := valueobject.Zero(currency)
	for _, e := range entries {
		if !e.Completed {
			continue
		}
		delta := e.Sum
		if e.Sign == SignOut {
			delta = delta.Negate()
		}
		next, err := balance.Add(delta)
		if err != nil {
			return valueobject.Money{}, err
		}
		balance = next
	}
	return balance, nil
}

// ApplyToBalance returns the balance after completing a transaction of ttype.
// An outgoing movement that would leave the box negative fails with
// ErrInsufficientFunds.
func ApplyToBalance(balance valueobject.Money, ttype TransactionType, sum valueobject.Money) (valueobject.Money, error) {
	next, err := balance.Add(ttype.Signed(sum))
	if err != nil {
		return valueobject.Money{}, err
	}
	if ttype.Sign == SignOut && next.IsNegative() {
		return valueobject.Money{}, shared.ErrInsufficientFunds
	}
	return next, nil
}

// BalanceSnapshot is one append-only row of a box's balance history
type BalanceSnapshot struct {
	ID            uuid.UUID
	TenantID      *uuid.UUID
	CashBoxID     uuid.UUID
	TransactionID *uuid.UUID
	Delta         valueobject.Money
	BalanceAfter  valueobject.Money
	Reason        string
	RecordedAt    time.Time
}

const (
	SnapshotReasonCompleted = "completed"
	SnapshotReasonDeleted   = "deleted"
)

// NewBalanceSnapshot builds a history row of purse p
func NewBalanceSnapshot(p Purse, transactionID *uuid.UUID, delta, after valueobject.Money, reason string) *BalanceSnapshot {
	return &BalanceSnapshot{
		ID:            uuid.New(),
		TenantID:      p.TenantID,
		CashBoxID:     p.CashBoxID,
		TransactionID: transactionID,
		Delta:         delta,
		BalanceAfter:  after,
		Reason:        reason,
		RecordedAt:    time.Now(),
	}
}

// LockOrder returns the distinct ids in ascending byte order. Every path that
// locks more than one cash box locks them in this order.
func LockOrder(ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
