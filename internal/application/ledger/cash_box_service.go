package ledger

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CreateCashBox creates a cash box in the caller's tenant and company
func (s *FinanceService) CreateCashBox(ctx context.Context, scope shared.RequestScope, req CreateCashBoxRequest) (*CashBoxResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	box, err := ledger.NewCashBox(scope, req.Name, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	if err := box.Update(box.Name, req.Description, req.LogoSource, req.LogoPath, req.SortOrder); err != nil {
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos Repositories) error {
		return repos.CashBoxes().Save(ctx, box)
	})
	if err != nil {
		return nil, err
	}
	resp := ToCashBoxResponse(box)
	return &resp, nil
}

// UpdateCashBox edits presentation fields
func (s *FinanceService) UpdateCashBox(ctx context.Context, scope shared.RequestScope, id uuid.UUID, req UpdateCashBoxRequest) (*CashBoxResponse, error) {
	var out *CashBoxResponse
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if box.TenantID == nil {
			return shared.ErrForbidden
		}
		if err := box.Update(req.Name, req.Description, req.LogoSource, req.LogoPath, req.SortOrder); err != nil {
			return err
		}
		if err := repos.CashBoxes().Save(ctx, box); err != nil {
			return err
		}
		resp := ToCashBoxResponse(box)
		out = &resp
		return nil
	})
	return out, err
}

// ArchiveCashBox stops a box from taking new movements
func (s *FinanceService) ArchiveCashBox(ctx context.Context, scope shared.RequestScope, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos Repositories) error {
		boxes, err := s.lockBoxes(ctx, repos, scope, "archive_cash_box", id)
		if err != nil {
			return err
		}
		box := boxes[id]
		if box.TenantID == nil {
			return shared.ErrForbidden
		}
		box.Archive()
		return repos.CashBoxes().Save(ctx, box)
	})
}

// DeleteCashBox removes a box that no ledger row references
func (s *FinanceService) DeleteCashBox(ctx context.Context, scope shared.RequestScope, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos Repositories) error {
		boxes, err := s.lockBoxes(ctx, repos, scope, "delete_cash_box", id)
		if err != nil {
			return err
		}
		if boxes[id].TenantID == nil {
			return shared.ErrForbidden
		}
		refs, err := repos.CashBoxes().CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return shared.ErrCashBoxInUse
		}
		if err := repos.BalanceHistory().DeleteByCashBox(ctx, id); err != nil {
			return err
		}
		return repos.CashBoxes().Delete(ctx, id)
	})
}

// GetCashBox returns one visible box
func (s *FinanceService) GetCashBox(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*CashBoxResponse, error) {
	var out *CashBoxResponse
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		resp := ToCashBoxResponse(box)
		out = &resp
		return nil
	})
	return out, err
}

// ListCashBoxes lists the boxes visible to scope, shared ones included
func (s *FinanceService) ListCashBoxes(ctx context.Context, scope shared.RequestScope, includeArchived bool) ([]CashBoxResponse, error) {
	var out []CashBoxResponse
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		boxes, err := repos.CashBoxes().List(ctx, scope, includeArchived)
		if err != nil {
			return err
		}
		out = make([]CashBoxResponse, 0, len(boxes))
		for i := range boxes {
			out = append(out, ToCashBoxResponse(&boxes[i]))
		}
		return nil
	})
	return out, err
}

// GetCashBoxBalance reads the live balance without locking
func (s *FinanceService) GetCashBoxBalance(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*BalanceResponse, error) {
	var out *BalanceResponse
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		balance, err := repos.Transactions().SumCompleted(ctx, box.PurseOf(scope.TenantID))
		if err != nil {
			return err
		}
		out = &BalanceResponse{CashBoxID: box.ID, Balance: balance, AsOf: time.Now()}
		return nil
	})
	return out, err
}

// VerifyCashBoxBalance compares the SQL aggregate with a row-by-row replay
func (s *FinanceService) VerifyCashBoxBalance(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*BalanceCheck, error) {
	var out *BalanceCheck
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		purse := box.PurseOf(scope.TenantID)
		aggregated, err := repos.Transactions().SumCompleted(ctx, purse)
		if err != nil {
			return err
		}
		entries, err := repos.Transactions().CompletedEntries(ctx, purse)
		if err != nil {
			return err
		}
		replayed, err := ledger.ReplayBalance(box.Currency, entries)
		if err != nil {
			return err
		}
		out = &BalanceCheck{
			CashBoxID:  box.ID,
			Aggregated: aggregated,
			Replayed:   replayed,
			Consistent: aggregated.Equals(replayed),
		}
		return nil
	})
	return out, err
}

// ListBalanceHistory returns the opening balance at from and the history
// rows recorded in [from, to).
func (s *FinanceService) ListBalanceHistory(ctx context.Context, scope shared.RequestScope, id uuid.UUID, from, to time.Time) (*BalanceHistoryResponse, error) {
	if !to.IsZero() && to.Before(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "history range end precedes its start")
	}
	var out *BalanceHistoryResponse
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		purse := box.PurseOf(scope.TenantID)
		opening, err := s.openingBalance(ctx, repos, purse, from)
		if err != nil {
			return err
		}
		if to.IsZero() {
			to = time.Now().Add(time.Second)
		}
		rows, err := repos.BalanceHistory().List(ctx, purse, from, to)
		if err != nil {
			return err
		}
		out = &BalanceHistoryResponse{CashBoxID: box.ID, OpeningBalance: opening, Entries: make([]BalanceSnapshotResponse, 0, len(rows))}
		for _, r := range rows {
			out.Entries = append(out.Entries, BalanceSnapshotResponse{
				TransactionID: r.TransactionID,
				Delta:         r.Delta,
				BalanceAfter:  r.BalanceAfter,
				Reason:        r.Reason,
				RecordedAt:    r.RecordedAt,
			})
		}
		return nil
	})
	return out, err
}

// OpeningBalance is the balance recorded by the last snapshot strictly
// before at, or zero.
func (s *FinanceService) OpeningBalance(ctx context.Context, scope shared.RequestScope, id uuid.UUID, at time.Time) (valueobject.Money, error) {
	var out valueobject.Money
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		box, err := repos.CashBoxes().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		out, err = s.openingBalance(ctx, repos, box.PurseOf(scope.TenantID), at)
		return err
	})
	return out, err
}

func (s *FinanceService) openingBalance(ctx context.Context, repos Repositories, purse ledger.Purse, at time.Time) (valueobject.Money, error) {
	snap, err := repos.BalanceHistory().LatestBefore(ctx, purse, at)
	if err != nil {
		return valueobject.Money{}, err
	}
	if snap == nil {
		return valueobject.Zero(purse.Currency), nil
	}
	return snap.BalanceAfter, nil
}
