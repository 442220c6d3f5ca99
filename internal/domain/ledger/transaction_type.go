package ledger

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TypeCode identifies a catalog transaction type
type TypeCode string

const (
	TypeIncome             TypeCode = "INCOME"
	TypeOutcome            TypeCode = "OUTCOME"
	TypeTransferIn         TypeCode = "TRANSFER_IN"
	TypeTransferOut        TypeCode = "TRANSFER_OUT"
	TypeDirectorLoan       TypeCode = "DIRECTOR_LOAN"
	TypeDirectorWithdrawal TypeCode = "DIRECTOR_WITHDRAWAL"
)

// Sign is the balance direction of a type: +1 adds, -1 subtracts
type Sign int

const (
	SignIn  Sign = 1
	SignOut Sign = -1
)

// Valid reports whether s is +1 or -1
func (s Sign) Valid() bool {
	return s == SignIn || s == SignOut
}

// TransactionType is immutable reference data
type TransactionType struct {
	ID        uuid.UUID
	Code      TypeCode
	Name      string
	Sign      Sign
	IsActive  bool
	SortOrder int
}

// Signed returns sum with the type's sign applied
func (t TransactionType) Signed(sum valueobject.Money) valueobject.Money {
	if t.Sign == SignOut {
		return sum.Negate()
	}
	return sum
}

// TypeRegistry resolves catalog rows by code or id
type TypeRegistry struct {
	byCode map[TypeCode]TransactionType
	byID   map[uuid.UUID]TransactionType
}

// NewTypeRegistry indexes the active catalog rows
func NewTypeRegistry(types []TransactionType) *TypeRegistry {
	r := &TypeRegistry{
		byCode: make(map[TypeCode]TransactionType, len(types)),
		byID:   make(map[uuid.UUID]TransactionType, len(types)),
	}
	for _, t := range types {
		if !t.IsActive || !t.Sign.Valid() {
			continue
		}
		r.byCode[t.Code] = t
		r.byID[t.ID] = t
	}
	return r
}

// ByCode returns the active type with the given code
func (r *TypeRegistry) ByCode(code TypeCode) (TransactionType, error) {
	t, ok := r.byCode[code]
	if !ok {
		return TransactionType{}, shared.NewDomainError(shared.CodeTransactionTypeNotFound,
			"transaction type "+string(code)+" not found in catalog")
	}
	return t, nil
}

// ByID returns the active type with the given id
func (r *TypeRegistry) ByID(id uuid.UUID) (TransactionType, error) {
	t, ok := r.byID[id]
	if !ok {
		return TransactionType{}, shared.ErrTransactionTypeNotFound
	}
	return t, nil
}
