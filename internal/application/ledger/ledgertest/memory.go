// Package ledgertest provides an in-memory unit of work for service tests.
package ledgertest

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

type state struct {
	boxes        map[uuid.UUID]ledger.CashBox
	types        []ledger.TransactionType
	transactions map[uuid.UUID]ledger.Transaction
	receipts     map[uuid.UUID]ledger.Receipt
	spendings    map[uuid.UUID]ledger.Spending
	transfers    map[uuid.UUID]ledger.CashTransfer
	history      []ledger.BalanceSnapshot

	objects     map[uuid.UUID]financeobject.FinanceObject
	allocations map[uuid.UUID][]financeobject.Allocation
	finAllocs   []financeobject.FinanceAllocation

	contracts map[uuid.UUID]contract.Contract
	statuses  map[uuid.UUID]contract.Status
	documents []contract.Document
	templates map[uuid.UUID]contract.Template
	items     []contract.Item

	rules    map[uuid.UUID]payroll.Rule
	accruals map[uuid.UUID]payroll.Accrual
	payouts  map[uuid.UUID]payroll.Payout

	daily   []report.DailyRow
	monthly []report.MonthlyRow
	summary []report.SummaryRow
	periods map[uuid.UUID]report.ReportingPeriod

	events  []shared.DomainEvent
	lockLog [][]uuid.UUID
}

func (s state) clone() state {
	c := s
	c.boxes = maps.Clone(s.boxes)
	c.types = slices.Clone(s.types)
	c.transactions = maps.Clone(s.transactions)
	c.receipts = maps.Clone(s.receipts)
	c.spendings = maps.Clone(s.spendings)
	c.transfers = maps.Clone(s.transfers)
	c.history = slices.Clone(s.history)
	c.objects = maps.Clone(s.objects)
	c.allocations = maps.Clone(s.allocations)
	c.finAllocs = slices.Clone(s.finAllocs)
	c.contracts = maps.Clone(s.contracts)
	c.statuses = maps.Clone(s.statuses)
	c.documents = slices.Clone(s.documents)
	c.templates = maps.Clone(s.templates)
	c.items = slices.Clone(s.items)
	c.rules = maps.Clone(s.rules)
	c.accruals = maps.Clone(s.accruals)
	c.payouts = maps.Clone(s.payouts)
	c.daily = slices.Clone(s.daily)
	c.monthly = slices.Clone(s.monthly)
	c.summary = slices.Clone(s.summary)
	c.periods = maps.Clone(s.periods)
	c.events = slices.Clone(s.events)
	c.lockLog = slices.Clone(s.lockLog)
	return c
}

// Store is an in-memory TransactionScope. Units of work run one at a time;
// a failing unit of work leaves the store untouched.
type Store struct {
	mu sync.Mutex
	st state
}

// NewStore returns an empty store seeded with the standard type catalog
func NewStore() *Store {
	return &Store{st: state{
		boxes:        map[uuid.UUID]ledger.CashBox{},
		types:        DefaultTypes(),
		transactions: map[uuid.UUID]ledger.Transaction{},
		receipts:     map[uuid.UUID]ledger.Receipt{},
		spendings:    map[uuid.UUID]ledger.Spending{},
		transfers:    map[uuid.UUID]ledger.CashTransfer{},
		objects:      map[uuid.UUID]financeobject.FinanceObject{},
		allocations:  map[uuid.UUID][]financeobject.Allocation{},
		contracts:    map[uuid.UUID]contract.Contract{},
		statuses:     map[uuid.UUID]contract.Status{},
		templates:    map[uuid.UUID]contract.Template{},
		rules:        map[uuid.UUID]payroll.Rule{},
		accruals:     map[uuid.UUID]payroll.Accrual{},
		payouts:      map[uuid.UUID]payroll.Payout{},
		periods:      map[uuid.UUID]report.ReportingPeriod{},
	}}
}

// DefaultTypes is the seeded transaction type catalog
func DefaultTypes() []ledger.TransactionType {
	mk := func(code ledger.TypeCode, sign ledger.Sign, order int) ledger.TransactionType {
		return ledger.TransactionType{ID: uuid.New(), Code: code, Name: string(code), Sign: sign, IsActive: true, SortOrder: order}
	}
	return []ledger.TransactionType{
		mk(ledger.TypeIncome, ledger.SignIn, 1),
		mk(ledger.TypeOutcome, ledger.SignOut, 2),
		mk(ledger.TypeTransferIn, ledger.SignIn, 3),
		mk(ledger.TypeTransferOut, ledger.SignOut, 4),
		mk(ledger.TypeDirectorLoan, ledger.SignIn, 5),
		mk(ledger.TypeDirectorWithdrawal, ledger.SignOut, 6),
	}
}

// Execute runs fn against a working copy and commits it only on success
func (s *Store) Execute(ctx context.Context, fn func(repos appledger.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&repos{st: &work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

var _ appledger.TransactionScope = (*Store)(nil)

// Seeding and inspection helpers. They bypass units of work.

func (s *Store) AddCashBox(b *ledger.CashBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.boxes[b.ID] = *b
}

func (s *Store) AddContract(c *contract.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.contracts[c.ID] = *c
}

func (s *Store) AddStatus(st contract.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.statuses[st.ID] = st
}

func (s *Store) AddDocument(d contract.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.documents = append(s.st.documents, d)
}

func (s *Store) AddTemplate(t contract.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.templates[t.ID] = t
}

func (s *Store) AddItem(it contract.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items = append(s.st.items, it)
}

func (s *Store) AddFinanceObject(o *financeobject.FinanceObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.objects[o.ID] = *o
}

func (s *Store) AddRule(r *payroll.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rules[r.ID] = *r
}

func (s *Store) CashBox(id uuid.UUID) ledger.CashBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.boxes[id]
}

func (s *Store) Contract(id uuid.UUID) contract.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.contracts[id]
}

func (s *Store) Transaction(id uuid.UUID) (ledger.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.transactions[id]
	return t, ok
}

func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.transactions)
}

func (s *Store) Receipt(id uuid.UUID) (ledger.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.receipts[id]
	return r, ok
}

func (s *Store) Spending(id uuid.UUID) (ledger.Spending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.st.spendings[id]
	return sp, ok
}

func (s *Store) Accrual(id uuid.UUID) payroll.Accrual {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.accruals[id]
}

// Accruals returns every accrual of a contract
func (s *Store) Accruals(contractID uuid.UUID) []payroll.Accrual {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payroll.Accrual
	for _, a := range s.st.accruals {
		if a.ContractID == contractID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) PayoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.payouts)
}

func (s *Store) Allocations(transactionID uuid.UUID) []financeobject.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.allocations[transactionID])
}

func (s *Store) FinanceAllocations() []financeobject.FinanceAllocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.finAllocs)
}

func (s *Store) History(cashBoxID uuid.UUID) []ledger.BalanceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.BalanceSnapshot
	for _, h := range s.st.history {
		if h.CashBoxID == cashBoxID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) Daily() []report.DailyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.daily)
}

func (s *Store) MonthlyRows() []report.MonthlyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.monthly)
}

func (s *Store) Summary() []report.SummaryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.summary)
}

// Events returns the recorded event types in order
func (s *Store) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.st.events))
	for _, e := range s.st.events {
		out = append(out, e.EventType())
	}
	return out
}

// RecordedEvents returns the recorded events
func (s *Store) RecordedEvents() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.events)
}

// LockLog lists the id sets passed to CashBoxes().LockForUpdate
func (s *Store) LockLog() [][]uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.lockLog)
}

// Backdate moves a stored transaction to another date
func (s *Store) Backdate(transactionID uuid.UUID, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.st.transactions[transactionID]
	t.Date = date
	s.st.transactions[transactionID] = t
}

// repos implements appledger.Repositories over a working copy
type repos struct {
	st *state
}

func (r *repos) CashBoxes() ledger.CashBoxRepository                  { return cashBoxRepo{r.st} }
func (r *repos) TransactionTypes() ledger.TransactionTypeRepository   { return typeRepo{r.st} }
func (r *repos) Transactions() ledger.TransactionRepository           { return transactionRepo{r.st} }
func (r *repos) Receipts() ledger.ReceiptRepository                   { return receiptRepo{r.st} }
func (r *repos) Spendings() ledger.SpendingRepository                 { return spendingRepo{r.st} }
func (r *repos) Transfers() ledger.CashTransferRepository             { return transferRepo{r.st} }
func (r *repos) BalanceHistory() ledger.BalanceHistoryRepository      { return historyRepo{r.st} }
func (r *repos) FinanceObjects() financeobject.FinanceObjectRepository { return objectRepo{r.st} }
func (r *repos) Allocations() financeobject.AllocationRepository      { return allocationRepo{r.st} }
func (r *repos) FinanceAllocations() financeobject.FinanceAllocationRepository {
	return finAllocRepo{r.st}
}
func (r *repos) Contracts() contract.ContractRepository         { return contractRepo{r.st} }
func (r *repos) ContractStatuses() contract.StatusRepository    { return statusRepo{r.st} }
func (r *repos) ContractDocuments() contract.DocumentRepository { return documentRepo{r.st} }
func (r *repos) PayrollRules() payroll.RuleRepository           { return ruleRepo{r.st} }
func (r *repos) Accruals() payroll.AccrualRepository            { return accrualRepo{r.st} }
func (r *repos) Payouts() payroll.PayoutRepository              { return payoutRepo{r.st} }
func (r *repos) Cashflow() report.CashflowRepository            { return cashflowRepo{r.st} }
func (r *repos) Periods() report.PeriodRepository               { return periodRepo{r.st} }
func (r *repos) Events() shared.EventRecorder                   { return eventRecorder{r.st} }

var _ appledger.Repositories = (*repos)(nil)

func notFound() error { return shared.ErrNotFound }

func typeSign(st *state, typeID uuid.UUID) ledger.Sign {
	for _, t := range st.types {
		if t.ID == typeID {
			return t.Sign
		}
	}
	return ledger.SignIn
}

func sameCompany(company *uuid.UUID, scope shared.RequestScope) bool {
	if scope.CompanyID == uuid.Nil {
		return company == nil
	}
	return company != nil && *company == scope.CompanyID
}

// ---- ledger ----

type cashBoxRepo struct{ st *state }

func (r cashBoxRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.CashBox, error) {
	b, ok := r.st.boxes[id]
	if !ok || !b.VisibleTo(scope) {
		return nil, notFound()
	}
	return &b, nil
}

func (r cashBoxRepo) LockForUpdate(ctx context.Context, scope shared.RequestScope, ids ...uuid.UUID) ([]*ledger.CashBox, error) {
	r.st.lockLog = append(r.st.lockLog, slices.Clone(ids))
	out := make([]*ledger.CashBox, 0, len(ids))
	for _, id := range ledger.LockOrder(ids...) {
		b, err := r.FindByID(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r cashBoxRepo) List(_ context.Context, scope shared.RequestScope, includeArchived bool) ([]ledger.CashBox, error) {
	var out []ledger.CashBox
	for _, b := range r.st.boxes {
		if b.VisibleTo(scope) && (includeArchived || !b.IsArchived) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r cashBoxRepo) Save(_ context.Context, box *ledger.CashBox) error {
	r.st.boxes[box.ID] = *box
	return nil
}

func (r cashBoxRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.st.boxes, id)
	return nil
}

func (r cashBoxRepo) CountReferences(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, t := range r.st.transactions {
		if t.CashBoxID == id {
			n++
		}
	}
	for _, rc := range r.st.receipts {
		if rc.CashBoxID == id {
			n++
		}
	}
	for _, sp := range r.st.spendings {
		if sp.CashBoxID == id {
			n++
		}
	}
	for _, tr := range r.st.transfers {
		if tr.FromCashBoxID == id || tr.ToCashBoxID == id {
			n++
		}
	}
	return n, nil
}

type typeRepo struct{ st *state }

func (r typeRepo) FindActive(context.Context) ([]ledger.TransactionType, error) {
	var out []ledger.TransactionType
	for _, t := range r.st.types {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

type transactionRepo struct{ st *state }

func (r transactionRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Transaction, error) {
	t, ok := r.st.transactions[id]
	if !ok || !t.BelongsTo(scope) {
		return nil, notFound()
	}
	return &t, nil
}

func (r transactionRepo) FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for _, id := range ids {
		if t, err := r.FindByID(ctx, scope, id); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r transactionRepo) Save(_ context.Context, t *ledger.Transaction) error {
	r.st.transactions[t.ID] = *t
	return nil
}

func (r transactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.st.transactions, id)
	return nil
}

// inPurse mirrors the SQL filter: the box, narrowed to one tenant when the
// box is shared
func inPurse(p ledger.Purse, cashBoxID uuid.UUID, tenantID *uuid.UUID) bool {
	if cashBoxID != p.CashBoxID {
		return false
	}
	if !p.Pooled {
		return true
	}
	return tenantID != nil && *tenantID == *p.TenantID
}

func (r transactionRepo) SumCompleted(ctx context.Context, p ledger.Purse) (valueobject.Money, error) {
	entries, err := r.CompletedEntries(ctx, p)
	if err != nil {
		return valueobject.Money{}, err
	}
	return ledger.ReplayBalance(p.Currency, entries)
}

func (r transactionRepo) CompletedEntries(_ context.Context, p ledger.Purse) ([]ledger.LedgerEntry, error) {
	var rows []ledger.Transaction
	for _, t := range r.st.transactions {
		tenant := t.TenantID
		if t.IsCompleted && inPurse(p, t.CashBoxID, &tenant) {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CompletedAt.Before(*rows[j].CompletedAt) })
	out := make([]ledger.LedgerEntry, 0, len(rows))
	for _, t := range rows {
		out = append(out, ledger.LedgerEntry{Sum: t.Sum, Sign: typeSign(r.st, t.TypeID), Completed: true})
	}
	return out, nil
}

type receiptRepo struct{ st *state }

func (r receiptRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Receipt, error) {
	rc, ok := r.st.receipts[id]
	if !ok || !rc.BelongsTo(scope) {
		return nil, notFound()
	}
	return &rc, nil
}

func (r receiptRepo) FindByTransactionID(_ context.Context, transactionID uuid.UUID) (*ledger.Receipt, error) {
	for _, rc := range r.st.receipts {
		if rc.TransactionID != nil && *rc.TransactionID == transactionID {
			return &rc, nil
		}
	}
	return nil, notFound()
}

func (r receiptRepo) Save(_ context.Context, rc *ledger.Receipt) error {
	r.st.receipts[rc.ID] = *rc
	return nil
}

func (r receiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.st.receipts, id)
	return nil
}

func (r receiptRepo) SumByContract(_ context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error) {
	total := valueobject.Zero(currency)
	for _, rc := range r.st.receipts {
		if rc.ContractID == nil || *rc.ContractID != contractID {
			continue
		}
		next, err := total.Add(rc.Sum)
		if err != nil {
			return valueobject.Money{}, err
		}
		total = next
	}
	return total, nil
}

type spendingRepo struct{ st *state }

func (r spendingRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Spending, error) {
	sp, ok := r.st.spendings[id]
	if !ok || !sp.BelongsTo(scope) {
		return nil, notFound()
	}
	return &sp, nil
}

func (r spendingRepo) FindByTransactionID(_ context.Context, transactionID uuid.UUID) (*ledger.Spending, error) {
	for _, sp := range r.st.spendings {
		if sp.TransactionID != nil && *sp.TransactionID == transactionID {
			return &sp, nil
		}
	}
	return nil, notFound()
}

func (r spendingRepo) Save(_ context.Context, sp *ledger.Spending) error {
	r.st.spendings[sp.ID] = *sp
	return nil
}

func (r spendingRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.st.spendings, id)
	return nil
}

type transferRepo struct{ st *state }

func (r transferRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.CashTransfer, error) {
	t, ok := r.st.transfers[id]
	if !ok || !t.BelongsTo(scope) {
		return nil, notFound()
	}
	return &t, nil
}

func (r transferRepo) Save(_ context.Context, t *ledger.CashTransfer) error {
	r.st.transfers[t.ID] = *t
	return nil
}

type historyRepo struct{ st *state }

func (r historyRepo) Append(_ context.Context, s *ledger.BalanceSnapshot) error {
	r.st.history = append(r.st.history, *s)
	return nil
}

func (r historyRepo) List(_ context.Context, p ledger.Purse, from, to time.Time) ([]ledger.BalanceSnapshot, error) {
	var out []ledger.BalanceSnapshot
	for _, h := range r.st.history {
		if inPurse(p, h.CashBoxID, h.TenantID) && !h.RecordedAt.Before(from) && !h.RecordedAt.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r historyRepo) LatestBefore(_ context.Context, p ledger.Purse, at time.Time) (*ledger.BalanceSnapshot, error) {
	var latest *ledger.BalanceSnapshot
	for i := range r.st.history {
		h := r.st.history[i]
		if !inPurse(p, h.CashBoxID, h.TenantID) || !h.RecordedAt.Before(at) {
			continue
		}
		if latest == nil || !h.RecordedAt.Before(latest.RecordedAt) {
			latest = &h
		}
	}
	return latest, nil
}

func (r historyRepo) DeleteByCashBox(_ context.Context, cashBoxID uuid.UUID) error {
	r.st.history = slices.DeleteFunc(r.st.history, func(h ledger.BalanceSnapshot) bool {
		return h.CashBoxID == cashBoxID
	})
	return nil
}

// ---- finance objects ----

type objectRepo struct{ st *state }

func (r objectRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*financeobject.FinanceObject, error) {
	o, ok := r.st.objects[id]
	if !ok || !o.BelongsTo(scope) {
		return nil, notFound()
	}
	return &o, nil
}

func (r objectRepo) FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*financeobject.FinanceObject, error) {
	out := make(map[uuid.UUID]*financeobject.FinanceObject, len(ids))
	for _, id := range ids {
		if o, err := r.FindByID(ctx, scope, id); err == nil {
			out[id] = o
		}
	}
	return out, nil
}

func (r objectRepo) Save(_ context.Context, o *financeobject.FinanceObject) error {
	r.st.objects[o.ID] = *o
	return nil
}

type allocationRepo struct{ st *state }

func (r allocationRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]financeobject.Allocation, error) {
	return slices.Clone(r.st.allocations[transactionID]), nil
}

func (r allocationRepo) ReplaceForTransaction(_ context.Context, transactionID uuid.UUID, allocations []financeobject.Allocation) error {
	if len(allocations) == 0 {
		delete(r.st.allocations, transactionID)
		return nil
	}
	r.st.allocations[transactionID] = slices.Clone(allocations)
	return nil
}

func (r allocationRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	delete(r.st.allocations, transactionID)
	return nil
}

type finAllocRepo struct{ st *state }

func (r finAllocRepo) SaveAll(_ context.Context, rows []financeobject.FinanceAllocation) error {
	r.st.finAllocs = append(r.st.finAllocs, rows...)
	return nil
}

func (r finAllocRepo) FindByPayout(_ context.Context, payoutID uuid.UUID) ([]financeobject.FinanceAllocation, error) {
	var out []financeobject.FinanceAllocation
	for _, fa := range r.st.finAllocs {
		if fa.PayoutID != nil && *fa.PayoutID == payoutID {
			out = append(out, fa)
		}
	}
	return out, nil
}

func (r finAllocRepo) DeleteByPayout(_ context.Context, payoutID uuid.UUID) error {
	r.st.finAllocs = slices.DeleteFunc(r.st.finAllocs, func(fa financeobject.FinanceAllocation) bool {
		return fa.PayoutID != nil && *fa.PayoutID == payoutID
	})
	return nil
}

func (r finAllocRepo) DeleteBySpending(_ context.Context, spendingID uuid.UUID) error {
	r.st.finAllocs = slices.DeleteFunc(r.st.finAllocs, func(fa financeobject.FinanceAllocation) bool {
		return fa.SpendingID == spendingID
	})
	return nil
}

func (r finAllocRepo) SumExpensesForContract(_ context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error) {
	allocated := make(map[uuid.UUID]bool)
	var parts []valueobject.Money
	for _, fa := range r.st.finAllocs {
		allocated[fa.SpendingID] = true
		if fa.Kind == financeobject.KindExpense && fa.ContractID != nil && *fa.ContractID == contractID {
			parts = append(parts, fa.Amount)
		}
	}
	for _, sp := range r.st.spendings {
		if sp.ContractID != nil && *sp.ContractID == contractID && !allocated[sp.ID] {
			parts = append(parts, sp.Sum)
		}
	}
	return valueobject.Sum(currency, parts...)
}

// ---- contracts ----

type contractRepo struct{ st *state }

func (r contractRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*contract.Contract, error) {
	c, ok := r.st.contracts[id]
	if !ok || !c.BelongsTo(scope) {
		return nil, notFound()
	}
	return &c, nil
}

func (r contractRepo) FindForUpdate(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*contract.Contract, error) {
	return r.FindByID(ctx, scope, id)
}

func (r contractRepo) ListActiveIDs(_ context.Context, scope shared.RequestScope) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, c := range r.st.contracts {
		if c.BelongsTo(scope) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r contractRepo) Save(_ context.Context, c *contract.Contract) error {
	r.st.contracts[c.ID] = *c
	return nil
}

type statusRepo struct{ st *state }

func (r statusRepo) FindByID(_ context.Context, id uuid.UUID) (*contract.Status, error) {
	s, ok := r.st.statuses[id]
	if !ok {
		return nil, notFound()
	}
	return &s, nil
}

type documentRepo struct{ st *state }

func (r documentRepo) ListDocuments(_ context.Context, contractID uuid.UUID) ([]contract.Document, error) {
	var out []contract.Document
	for _, d := range r.st.documents {
		if d.ContractID == contractID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r documentRepo) FindTemplates(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*contract.Template, error) {
	out := make(map[uuid.UUID]*contract.Template, len(ids))
	for _, id := range ids {
		if t, ok := r.st.templates[id]; ok {
			out[id] = &t
		}
	}
	return out, nil
}

func (r documentRepo) ListItems(_ context.Context, contractID uuid.UUID) ([]contract.Item, error) {
	var out []contract.Item
	for _, it := range r.st.items {
		if it.ContractID == contractID {
			out = append(out, it)
		}
	}
	return out, nil
}

// ---- payroll ----

type ruleRepo struct{ st *state }

func (r ruleRepo) ListForUser(_ context.Context, tenantID, userID uuid.UUID) ([]payroll.Rule, error) {
	var out []payroll.Rule
	for _, rule := range r.st.rules {
		if rule.TenantID == tenantID && rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r ruleRepo) List(_ context.Context, scope shared.RequestScope) ([]payroll.Rule, error) {
	var out []payroll.Rule
	for _, rule := range r.st.rules {
		if rule.BelongsTo(scope) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentType < out[j].DocumentType })
	return out, nil
}

func (r ruleRepo) FindByKey(_ context.Context, scope shared.RequestScope, userID uuid.UUID, documentType string) (*payroll.Rule, error) {
	for _, rule := range r.st.rules {
		if rule.TenantID == scope.TenantID && sameCompany(rule.CompanyID, scope) &&
			rule.UserID == userID && rule.DocumentType == documentType {
			return &rule, nil
		}
	}
	return nil, notFound()
}

func (r ruleRepo) Save(_ context.Context, rule *payroll.Rule) error {
	r.st.rules[rule.ID] = *rule
	return nil
}

type accrualRepo struct{ st *state }

func (r accrualRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*payroll.Accrual, error) {
	a, ok := r.st.accruals[id]
	if !ok || !a.BelongsTo(scope) {
		return nil, notFound()
	}
	return &a, nil
}

func (r accrualRepo) FindForUpdate(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*payroll.Accrual, error) {
	out := make(map[uuid.UUID]*payroll.Accrual, len(ids))
	for _, id := range ids {
		if a, err := r.FindByID(ctx, scope, id); err == nil {
			out[id] = a
		}
	}
	return out, nil
}

func (r accrualRepo) FindActiveSystem(_ context.Context, key payroll.Key) (*payroll.Accrual, error) {
	for _, a := range r.st.accruals {
		if a.Source == payroll.SourceSystem && a.Status != payroll.StatusCancelled &&
			a.ContractID == key.ContractID && a.UserID == key.UserID && a.Type == key.Type &&
			a.ContractDocumentID != nil && *a.ContractDocumentID == key.DocumentID {
			return &a, nil
		}
	}
	return nil, nil
}

func (r accrualRepo) ListByContract(_ context.Context, contractID uuid.UUID) ([]*payroll.Accrual, error) {
	var out []*payroll.Accrual
	for _, a := range r.st.accruals {
		if a.ContractID == contractID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r accrualRepo) List(_ context.Context, scope shared.RequestScope, f payroll.AccrualFilter) ([]*payroll.Accrual, int64, error) {
	var all []*payroll.Accrual
	for _, a := range r.st.accruals {
		if !a.BelongsTo(scope) ||
			(f.UserID != nil && a.UserID != *f.UserID) ||
			(f.ContractID != nil && a.ContractID != *f.ContractID) ||
			(f.Status != "" && a.Status != f.Status) {
			continue
		}
		a := a
		all = append(all, &a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Filter), int64(len(all)), nil
}

func (r accrualRepo) Save(_ context.Context, a *payroll.Accrual) error {
	r.st.accruals[a.ID] = *a
	return nil
}

type payoutRepo struct{ st *state }

func (r payoutRepo) FindByID(_ context.Context, scope shared.RequestScope, id uuid.UUID) (*payroll.Payout, error) {
	p, ok := r.st.payouts[id]
	if !ok || !p.BelongsTo(scope) {
		return nil, notFound()
	}
	p.Items = slices.Clone(p.Items)
	return &p, nil
}

func (r payoutRepo) List(_ context.Context, scope shared.RequestScope, userID *uuid.UUID, f shared.Filter) ([]*payroll.Payout, int64, error) {
	var all []*payroll.Payout
	for _, p := range r.st.payouts {
		if !p.BelongsTo(scope) || (userID != nil && p.UserID != *userID) {
			continue
		}
		p := p
		all = append(all, &p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return page(all, f), int64(len(all)), nil
}

func (r payoutRepo) Save(_ context.Context, p *payroll.Payout) error {
	c := *p
	c.Items = slices.Clone(p.Items)
	r.st.payouts[p.ID] = c
	return nil
}

func (r payoutRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.st.payouts, id)
	return nil
}

func page[T any](rows []T, f shared.Filter) []T {
	start := f.Offset()
	if start >= len(rows) {
		return nil
	}
	end := min(start+f.Limit(), len(rows))
	return rows[start:end]
}

// ---- reports ----

type cashflowRepo struct{ st *state }

func books(k report.Key, scope shared.RequestScope) bool {
	return k.TenantID == scope.TenantID && k.CompanyID == scope.CompanyID
}

func (r cashflowRepo) SourceRows(_ context.Context, scope shared.RequestScope, from, to time.Time, currency valueobject.Currency) ([]report.SourceRow, error) {
	var out []report.SourceRow
	for _, t := range r.st.transactions {
		if t.TenantID != scope.TenantID || !sameCompany(t.CompanyID, scope) {
			continue
		}
		if !t.IsCompleted || !t.IsPaid || t.Sum.Currency() != currency {
			continue
		}
		if t.Source != nil && t.Source.IsTransferLeg() {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		item := report.Unclassified
		if t.CashflowItemID != nil {
			item = *t.CashflowItemID
		}
		out = append(out, report.SourceRow{Date: t.Date, CashflowItemID: item, Sign: int(typeSign(r.st, t.TypeID)), Sum: t.Sum})
	}
	return out, nil
}

func (r cashflowRepo) ClearDaily(_ context.Context, scope shared.RequestScope, from, to time.Time) error {
	r.st.daily = slices.DeleteFunc(r.st.daily, func(d report.DailyRow) bool {
		return books(d.Key, scope) && !d.Day.Before(from) && !d.Day.After(to)
	})
	return nil
}

func (r cashflowRepo) UpsertDaily(_ context.Context, rows []report.DailyRow) error {
	for _, row := range rows {
		r.st.daily = slices.DeleteFunc(r.st.daily, func(d report.DailyRow) bool {
			return d.Key == row.Key && d.Day.Equal(row.Day)
		})
		r.st.daily = append(r.st.daily, row)
	}
	return nil
}

func (r cashflowRepo) DailyBetween(_ context.Context, scope shared.RequestScope, from, to time.Time, _ valueobject.Currency) ([]report.DailyRow, error) {
	var out []report.DailyRow
	for _, d := range r.st.daily {
		if books(d.Key, scope) && !d.Day.Before(from) && !d.Day.After(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r cashflowRepo) ClearMonthly(_ context.Context, scope shared.RequestScope, months []report.Month) error {
	r.st.monthly = slices.DeleteFunc(r.st.monthly, func(m report.MonthlyRow) bool {
		return books(m.Key, scope) && slices.Contains(months, report.Month{Year: m.Year, Month: m.Month})
	})
	return nil
}

func (r cashflowRepo) UpsertMonthly(_ context.Context, rows []report.MonthlyRow) error {
	for _, row := range rows {
		r.st.monthly = slices.DeleteFunc(r.st.monthly, func(m report.MonthlyRow) bool {
			return m.Key == row.Key && m.Year == row.Year && m.Month == row.Month
		})
		r.st.monthly = append(r.st.monthly, row)
	}
	return nil
}

func (r cashflowRepo) Monthly(_ context.Context, scope shared.RequestScope, year int, _ valueobject.Currency) ([]report.MonthlyRow, error) {
	var out []report.MonthlyRow
	for _, m := range r.st.monthly {
		if books(m.Key, scope) && m.Year == year {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r cashflowRepo) AllMonthly(_ context.Context, scope shared.RequestScope, _ valueobject.Currency) ([]report.MonthlyRow, error) {
	var out []report.MonthlyRow
	for _, m := range r.st.monthly {
		if books(m.Key, scope) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r cashflowRepo) ReplaceSummary(_ context.Context, scope shared.RequestScope, rows []report.SummaryRow) error {
	r.st.summary = slices.DeleteFunc(r.st.summary, func(s report.SummaryRow) bool { return books(s.Key, scope) })
	r.st.summary = append(r.st.summary, rows...)
	return nil
}

type periodRepo struct{ st *state }

func (r periodRepo) Find(_ context.Context, scope shared.RequestScope, year, month int) (*report.ReportingPeriod, error) {
	for _, p := range r.st.periods {
		if p.TenantID == scope.TenantID && p.CompanyID == scope.CompanyID && p.Year == year && p.Month == month {
			return &p, nil
		}
	}
	return nil, notFound()
}

func (r periodRepo) FindMonths(ctx context.Context, scope shared.RequestScope, months []report.Month) ([]report.ReportingPeriod, error) {
	var out []report.ReportingPeriod
	for _, m := range months {
		if p, err := r.Find(ctx, scope, m.Year, m.Month); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r periodRepo) Save(_ context.Context, p *report.ReportingPeriod) error {
	r.st.periods[p.ID] = *p
	return nil
}

type eventRecorder struct{ st *state }

func (r eventRecorder) Record(_ context.Context, events ...shared.DomainEvent) error {
	r.st.events = append(r.st.events, events...)
	return nil
}
