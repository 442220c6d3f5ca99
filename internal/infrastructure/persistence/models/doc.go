// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// aggregate through ToDomain and XModelFromDomain.
//
// Money is stored as a decimal(18,2) amount next to a three-letter currency
// column. Files follow the bounded contexts:
//   - ledger.go: cash boxes, transaction types, transactions, receipts,
//     spendings, transfers, balance history
//   - financeobject.go: finance objects and both allocation tables
//   - contract.go: contracts with their statuses, documents, templates, items
//   - payroll.go: rules, accruals, payouts
//   - report.go: cashflow aggregates, reporting periods, cashflow items
//   - outbox.go: transactional outbox
package models
