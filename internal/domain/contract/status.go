package contract

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Status is a workflow status row. Workflow status is independent from the
// payment status.
type Status struct {
	ID   uuid.UUID
	Code string
	Name string
}

var (
	cancelledMarkers = []string{"cancel", "reject", "отмен", "отказ", "аннул"}
	completedMarkers = []string{"complete", "done", "finish", "closed", "выполн", "заверш", "законч"}
)

// IsCancelled reports whether the status belongs to the cancelled class
func (s *Status) IsCancelled() bool {
	return s != nil && s.matches(cancelledMarkers)
}

// IsCompleted reports whether the status belongs to the completed class.
// A status matching both vocabularies is treated as cancelled.
func (s *Status) IsCompleted() bool {
	return s != nil && !s.IsCancelled() && s.matches(completedMarkers)
}

func (s *Status) matches(markers []string) bool {
	fold := cases.Fold()
	code := fold.String(s.Code)
	name := fold.String(s.Name)
	for _, m := range markers {
		if strings.Contains(code, m) || strings.Contains(name, m) {
			return true
		}
	}
	return false
}
