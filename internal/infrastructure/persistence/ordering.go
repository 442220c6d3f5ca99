package persistence

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"gorm.io/gorm/clause"
)

// sortable is the set of columns a list endpoint may order by, with the
// column used when the request names none or an unknown one
type sortable struct {
	fallback string
	columns  []string
}

var (
	accrualOrder = sortable{
		fallback: "created_at",
		columns:  []string{"id", "created_at", "updated_at", "user_id", "contract_id", "type", "status", "amount", "paid_amount", "paid_at"},
	}
	payoutOrder = sortable{
		fallback: "date",
		columns:  []string{"id", "created_at", "updated_at", "user_id", "date", "total"},
	}
)

func (s sortable) column(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range s.columns {
		if c == name {
			return c
		}
	}
	return s.fallback
}

// orderBy turns the filter's ordering into a quoted ORDER BY term. Anything
// other than "asc" sorts descending.
func (s sortable) orderBy(f shared.Filter) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: s.column(f.OrderBy)},
		Desc:   !strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc"),
	}
}
