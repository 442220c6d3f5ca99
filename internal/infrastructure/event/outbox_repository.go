package event

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository stores outbox entries in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEventModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OutboxEventModelFromEntry(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// due selects pending rows and failed rows whose retry time has passed
func due(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", shared.OutboxStatusPending).
			Or("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, now)
	}
}

// ClaimDue flips up to limit due rows to PROCESSING in one transaction and
// returns them oldest first. SKIP LOCKED keeps concurrent processors from
// claiming the same row.
func (r *GormOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var rows []models.OutboxEventModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
			Scopes(due(now)).
			Order("created_at").
			Limit(limit).
			Find(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return tx.Model(&models.OutboxEventModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}

	claimed := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		claimed[i] = rows[i].ToEntry()
		claimed[i].Status = shared.OutboxStatusProcessing
		claimed[i].UpdatedAt = now
	}
	return claimed, nil
}

// Update writes back the delivery state of a claimed entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.OutboxEventModelFromEntry(entry)).Error
}

func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEventModel{})
	return res.RowsAffected, res.Error
}

// CountByStatus reports the number of rows per delivery state
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var (
	_ shared.OutboxRepository = (*GormOutboxRepository)(nil)
	_ statusCounter           = (*GormOutboxRepository)(nil)
)
