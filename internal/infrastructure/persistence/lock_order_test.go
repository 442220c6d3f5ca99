package persistence

import (
	"bytes"
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// idRecorder accepts every argument and remembers the ones that are box ids
type idRecorder struct {
	ids  map[string]bool
	seen []string
}

func (r *idRecorder) Match(v driver.Value) bool {
	if s, ok := v.(string); ok && r.ids[s] {
		r.seen = append(r.seen, s)
	}
	return true
}

func newMockCashBoxRepository(t *testing.T) (*GormCashBoxRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormCashBoxRepository(gormDB), mock
}

func TestGormCashBoxRepository_LockForUpdate_LocksInIDOrder(t *testing.T) {
	repo, mock := newMockCashBoxRepository(t)
	scope := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())

	a, b := uuid.New(), uuid.New()
	low, high := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		low, high = b, a
	}

	rec := &idRecorder{ids: map[string]bool{low.String(): true, high.String(): true}}
	for _, id := range []uuid.UUID{low, high} {
		mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE .* FOR UPDATE$`).
			WithArgs(rec, rec, rec).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "currency"}).
				AddRow(id, scope.TenantID, "Box", "RUB"))
	}

	// callers pass the pair in either order
	boxes, err := repo.LockForUpdate(context.Background(), scope, high, low)

	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, []string{low.String(), high.String()}, rec.seen)
	assert.Equal(t, low, boxes[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCashBoxRepository_LockForUpdate_MissingBox(t *testing.T) {
	repo, mock := newMockCashBoxRepository(t)
	scope := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())

	mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE .* FOR UPDATE$`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LockForUpdate(context.Background(), scope, uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
