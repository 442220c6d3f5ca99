package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels lists every table owned by the service, parents first
func AllModels() []any {
	return []any{
		&models.TransactionTypeModel{},
		&models.CashBoxModel{},
		&models.ContractStatusModel{},
		&models.ContractModel{},
		&models.DocumentTemplateModel{},
		&models.ContractDocumentModel{},
		&models.ContractItemModel{},
		&models.FinanceObjectModel{},
		&models.TransactionModel{},
		&models.ReceiptModel{},
		&models.SpendingModel{},
		&models.CashTransferModel{},
		&models.BalanceHistoryModel{},
		&models.AllocationModel{},
		&models.FinanceAllocationModel{},
		&models.PayrollRuleModel{},
		&models.AccrualModel{},
		&models.PayoutModel{},
		&models.PayoutItemModel{},
		&models.CashflowItemModel{},
		&models.CashflowDailyModel{},
		&models.CashflowMonthlyModel{},
		&models.CashflowSummaryModel{},
		&models.ReportingPeriodModel{},
		&models.OutboxEventModel{},
	}
}

// AutoMigrate creates the schema from the GORM models and seeds the
// transaction type catalog. Production databases are migrated with the SQL
// files under migrations/; this is for sqlite tests and local tooling.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedTransactionTypes(ctx, db)
}

// Stable ids of the seeded catalog, shared with migrations/000001_init.up.sql
var seededTypeIDs = map[ledger.TypeCode]uuid.UUID{
	ledger.TypeIncome:             uuid.MustParse("00000000-0000-0000-0000-000000000101"),
	ledger.TypeOutcome:            uuid.MustParse("00000000-0000-0000-0000-000000000102"),
	ledger.TypeTransferIn:         uuid.MustParse("00000000-0000-0000-0000-000000000103"),
	ledger.TypeTransferOut:        uuid.MustParse("00000000-0000-0000-0000-000000000104"),
	ledger.TypeDirectorLoan:       uuid.MustParse("00000000-0000-0000-0000-000000000105"),
	ledger.TypeDirectorWithdrawal: uuid.MustParse("00000000-0000-0000-0000-000000000106"),
}

// DefaultTransactionTypes returns the catalog rows every installation starts with
func DefaultTransactionTypes() []ledger.TransactionType {
	rows := []struct {
		code ledger.TypeCode
		name string
		sign ledger.Sign
	}{
		{ledger.TypeIncome, "Income", ledger.SignIn},
		{ledger.TypeOutcome, "Outcome", ledger.SignOut},
		{ledger.TypeTransferIn, "Transfer in", ledger.SignIn},
		{ledger.TypeTransferOut, "Transfer out", ledger.SignOut},
		{ledger.TypeDirectorLoan, "Director loan", ledger.SignIn},
		{ledger.TypeDirectorWithdrawal, "Director withdrawal", ledger.SignOut},
	}

	types := make([]ledger.TransactionType, 0, len(rows))
	for i, row := range rows {
		types = append(types, ledger.TransactionType{
			ID:        seededTypeIDs[row.code],
			Code:      row.code,
			Name:      row.name,
			Sign:      row.sign,
			IsActive:  true,
			SortOrder: i + 1,
		})
	}
	return types
}

// SeedTransactionTypes inserts the default catalog, leaving existing codes alone
func SeedTransactionTypes(ctx context.Context, db *gorm.DB) error {
	for _, t := range DefaultTransactionTypes() {
		row := models.TransactionTypeModel{
			ID:        t.ID,
			Code:      string(t.Code),
			Name:      t.Name,
			Sign:      int(t.Sign),
			IsActive:  t.IsActive,
			SortOrder: t.SortOrder,
		}
		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
			Create(&row).Error; err != nil {
			return fmt.Errorf("seed transaction type %s: %w", t.Code, err)
		}
	}
	return nil
}
