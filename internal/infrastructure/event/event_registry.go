package event

import (
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/payroll"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processor can only deliver types registered here.
func RegisterAllEvents(serializer *EventSerializer) {
	// Ledger
	serializer.Register(ledger.EventTransactionCreated, &ledger.TransactionEvent{})
	serializer.Register(ledger.EventTransactionUpdated, &ledger.TransactionEvent{})
	serializer.Register(ledger.EventTransactionDeleted, &ledger.TransactionEvent{})
	serializer.Register(ledger.EventReceiptCreated, &ledger.ReceiptCreatedEvent{})
	serializer.Register(ledger.EventDirectorLoanCreated, &ledger.ReceiptCreatedEvent{})
	serializer.Register(ledger.EventSpendingCreated, &ledger.SpendingCreatedEvent{})
	serializer.Register(ledger.EventDirectorWithdrawalCreated, &ledger.SpendingCreatedEvent{})
	serializer.Register(ledger.EventPaymentAppliedToContract, &ledger.PaymentAppliedToContractEvent{})
	serializer.Register(ledger.EventCashTransferCreated, &ledger.CashTransferCreatedEvent{})

	// Contracts
	serializer.Register(contract.EventContractRecalculated, &contract.RecalculatedEvent{})
	serializer.Register(contract.EventContractStatusChanged, &contract.StatusChangedEvent{})

	// Payroll
	serializer.Register(payroll.EventAccrualsChanged, &payroll.AccrualsChangedEvent{})
	serializer.Register(payroll.EventPayoutCreated, &payroll.PayoutEvent{})
	serializer.Register(payroll.EventPayoutDeleted, &payroll.PayoutEvent{})
}
