package tenant

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// TestModel is a simple model for testing books scoping
type TestModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CompanyID *uuid.UUID `gorm:"type:uuid"`
	Name      string     `gorm:"size:100"`
}

func (TestModel) TableName() string {
	return "test_models"
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func emptyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "company_id", "name"})
}

func TestTenantScope(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE tenant_id = \$1`).
		WithArgs(tenantID).
		WillReturnRows(emptyRows())

	var results []TestModel
	require.NoError(t, db.Scopes(TenantScope(tenantID)).Find(&results).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBelongsTo(t *testing.T) {
	tenantID, companyID := uuid.New(), uuid.New()

	t.Run("tenant only when scope has no company", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE tenant_id = \$1$`).
			WithArgs(tenantID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, uuid.Nil, uuid.New())
		require.NoError(t, db.Scopes(BelongsTo(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("company rows and company-less rows", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE tenant_id = \$1 AND .*company_id IS NULL OR company_id = \$2`).
			WithArgs(tenantID, companyID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, companyID, uuid.New())
		require.NoError(t, db.Scopes(BelongsTo(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVisible(t *testing.T) {
	tenantID, companyID := uuid.New(), uuid.New()

	t.Run("includes shared rows", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE \(tenant_id IS NULL OR tenant_id = \$1\)`).
			WithArgs(tenantID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, uuid.Nil, uuid.New())
		require.NoError(t, db.Scopes(Visible(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("narrows tenant rows to the company", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`tenant_id IS NULL OR \(tenant_id = \$1 AND \(company_id IS NULL OR company_id = \$2\)\)`).
			WithArgs(tenantID, companyID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, companyID, uuid.New())
		require.NoError(t, db.Scopes(Visible(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBooks(t *testing.T) {
	tenantID, companyID := uuid.New(), uuid.New()

	t.Run("null company", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE tenant_id = \$1 AND company_id IS NULL`).
			WithArgs(tenantID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, uuid.Nil, uuid.New())
		require.NoError(t, db.Scopes(Books(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exact company", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`WHERE tenant_id = \$1 AND company_id = \$2`).
			WithArgs(tenantID, companyID).
			WillReturnRows(emptyRows())

		var results []TestModel
		scope := shared.NewRequestScope(tenantID, companyID, uuid.New())
		require.NoError(t, db.Scopes(Books(scope)).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestKeyed(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	mock.ExpectQuery(`WHERE tenant_id = \$1 AND company_id = \$2`).
		WithArgs(tenantID, uuid.Nil).
		WillReturnRows(emptyRows())

	var results []TestModel
	scope := shared.NewRequestScope(tenantID, uuid.Nil, uuid.New())
	require.NoError(t, db.Scopes(Keyed(scope)).Find(&results).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
