package payroll

import (
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentShare is the margin slice attributed to one document
type DocumentShare struct {
	Document contract.Document
	Base     valueobject.Money
}

// DistributeMargin splits margin across documents by planned revenue: the
// total of line items whose product type the document's template covers.
// Documents without typed templates take an equal 1/N slice; the rest is
// shared by planned revenue, or equally when no revenue is planned.
func DistributeMargin(margin valueobject.Money, docs []contract.Document, templates map[uuid.UUID]*contract.Template, items []contract.Item) []DocumentShare {
	n := len(docs)
	if n == 0 {
		return nil
	}
	equal := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n)))

	planned := make([]decimal.Decimal, n)
	typed := make([]bool, n)
	typedTotal := decimal.Zero
	typedCount := 0
	for i, d := range docs {
		tpl := templateOf(d, templates)
		if tpl == nil || len(tpl.ProductTypes) == 0 {
			continue
		}
		typed[i] = true
		typedCount++
		for _, it := range items {
			if tpl.Covers(it.ProductType) {
				planned[i] = planned[i].Add(it.Total.Amount())
			}
		}
		typedTotal = typedTotal.Add(planned[i])
	}

	// weight left for typed documents after the untyped ones took 1/N each
	typedWeight := equal.Mul(decimal.NewFromInt(int64(typedCount)))

	out := make([]DocumentShare, 0, n)
	for i, d := range docs {
		ratio := equal
		if typed[i] {
			if typedTotal.IsPositive() {
				ratio = typedWeight.Mul(planned[i]).Div(typedTotal)
			}
		}
		out = append(out, DocumentShare{Document: d, Base: margin.Multiply(ratio).Round()})
	}
	return out
}

func templateOf(d contract.Document, templates map[uuid.UUID]*contract.Template) *contract.Template {
	if d.TemplateID == nil {
		return nil
	}
	return templates[*d.TemplateID]
}
