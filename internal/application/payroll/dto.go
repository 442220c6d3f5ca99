package payroll

import (
	"time"

	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpsertRuleRequest creates or replaces the rule for (user, document type)
type UpsertRuleRequest struct {
	UserID        uuid.UUID       `json:"user_id" binding:"required"`
	DocumentType  string          `json:"document_type" binding:"required,max=100"`
	FixedAmount   decimal.Decimal `json:"fixed_amount"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	IsActive      *bool           `json:"is_active"`
}

// RuleResponse is a payroll rule in API responses
type RuleResponse struct {
	ID            uuid.UUID         `json:"id"`
	CompanyID     *uuid.UUID        `json:"company_id,omitempty"`
	UserID        uuid.UUID         `json:"user_id"`
	DocumentType  string            `json:"document_type"`
	FixedAmount   valueobject.Money `json:"fixed_amount"`
	MarginPercent decimal.Decimal   `json:"margin_percent"`
	IsActive      bool              `json:"is_active"`
}

// ManualAccrualRequest records a bonus or a penalty
type ManualAccrualRequest struct {
	ContractID uuid.UUID           `json:"contract_id" binding:"required"`
	Type       payroll.AccrualType `json:"type" binding:"required,oneof=bonus penalty"`
	Amount     decimal.Decimal     `json:"amount" binding:"required"`
	Comment    string              `json:"comment" binding:"max=2000"`
}

// AccrualListFilter narrows ListAccruals
type AccrualListFilter struct {
	UserID     *uuid.UUID     `form:"user_id"`
	ContractID *uuid.UUID     `form:"contract_id"`
	Status     payroll.Status `form:"status" binding:"omitempty,oneof=active paid cancelled"`
	Page       int            `form:"page"`
	PageSize   int            `form:"page_size" binding:"omitempty,max=500"`
	OrderBy    string         `form:"order_by"`
	OrderDir   string         `form:"order_dir"`
}

// AccrualResponse is an accrual in API responses
type AccrualResponse struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	ContractID         uuid.UUID           `json:"contract_id"`
	ContractDocumentID *uuid.UUID          `json:"contract_document_id,omitempty"`
	Type               payroll.AccrualType `json:"type"`
	Source             payroll.Source      `json:"source"`
	Status             payroll.Status      `json:"status"`
	BaseAmount         valueobject.Money   `json:"base_amount"`
	Percent            *decimal.Decimal    `json:"percent,omitempty"`
	Amount             valueobject.Money   `json:"amount"`
	PaidAmount         valueobject.Money   `json:"paid_amount"`
	Remaining          valueobject.Money   `json:"remaining"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	Comment            string              `json:"comment,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// ToAccrualResponse converts a domain accrual
func ToAccrualResponse(a *payroll.Accrual) AccrualResponse {
	return AccrualResponse{
		ID:                 a.ID,
		UserID:             a.UserID,
		ContractID:         a.ContractID,
		ContractDocumentID: a.ContractDocumentID,
		Type:               a.Type,
		Source:             a.Source,
		Status:             a.Status,
		BaseAmount:         a.BaseAmount,
		Percent:            a.Percent,
		Amount:             a.Amount,
		PaidAmount:         a.PaidAmount,
		Remaining:          a.Remaining(),
		PaidAt:             a.PaidAt,
		CancelledAt:        a.CancelledAt,
		Comment:            a.Comment,
		CreatedAt:          a.CreatedAt,
	}
}

// PayoutItemRequest pays part of one accrual
type PayoutItemRequest struct {
	AccrualID uuid.UUID       `json:"accrual_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required,decimal_gt0"`
}

// CreatePayoutRequest settles accruals of one user from one cash box
type CreatePayoutRequest struct {
	UserID         uuid.UUID           `json:"user_id" binding:"required"`
	CashBoxID      uuid.UUID           `json:"cash_box_id" binding:"required"`
	Items          []PayoutItemRequest `json:"items" binding:"required,min=1,dive"`
	Date           *time.Time          `json:"date"`
	Comment        string              `json:"comment" binding:"max=2000"`
	CashflowItemID *uuid.UUID          `json:"cashflow_item_id"`
}

// PayoutResponse is a payout in API responses
type PayoutResponse struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	CashBoxID  uuid.UUID            `json:"cash_box_id"`
	SpendingID *uuid.UUID           `json:"spending_id,omitempty"`
	Total      valueobject.Money    `json:"total"`
	Date       time.Time            `json:"date"`
	Comment    string               `json:"comment,omitempty"`
	Items      []PayoutItemResponse `json:"items"`
}

// PayoutItemResponse is one payout line
type PayoutItemResponse struct {
	AccrualID uuid.UUID         `json:"accrual_id"`
	Amount    valueobject.Money `json:"amount"`
}

// ToPayoutResponse converts a domain payout
func ToPayoutResponse(p *payroll.Payout) PayoutResponse {
	r := PayoutResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		CashBoxID:  p.CashBoxID,
		SpendingID: p.SpendingID,
		Total:      p.Total,
		Date:       p.Date,
		Comment:    p.Comment,
		Items:      make([]PayoutItemResponse, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		r.Items = append(r.Items, PayoutItemResponse{AccrualID: it.AccrualID, Amount: it.Amount})
	}
	return r
}

// AccrualRunResult reports what an accrual run did
type AccrualRunResult struct {
	Upserted  int `json:"upserted"`
	Cancelled int `json:"cancelled"`
}

func dateOrNow(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return time.Now()
	}
	return *d
}
