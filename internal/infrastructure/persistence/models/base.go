package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BaseModel is the id and timestamps every table starts with
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic lock column checked by versioned updates
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func aggregateHeader(a shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{
		BaseModel: BaseModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt},
		Version:   a.Version,
	}
}

func (m AggregateModel) aggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

// TenantAggregateModel places a row in a tenant's books. A NULL company
// means the row is shared by every company of the tenant.
type TenantAggregateModel struct {
	AggregateModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CompanyID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

func tenantHeader(t shared.TenantAggregateRoot) TenantAggregateModel {
	return TenantAggregateModel{
		AggregateModel: aggregateHeader(t.BaseAggregateRoot),
		TenantID:       t.TenantID,
		CompanyID:      t.CompanyID,
		CreatedBy:      t.CreatedBy,
	}
}

func (m TenantAggregateModel) tenantRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: m.aggregateRoot(),
		TenantID:          m.TenantID,
		CompanyID:         m.CompanyID,
		CreatedBy:         m.CreatedBy,
	}
}

// money rebuilds a Money from stored columns. Amounts are validated on
// write, so a bad currency here is a corrupt row and reads as zero.
func money(amount decimal.Decimal, currency string) valueobject.Money {
	m, err := valueobject.NewMoney(amount, valueobject.Currency(currency))
	if err != nil {
		return valueobject.Zero(valueobject.DefaultCurrency)
	}
	return m
}
