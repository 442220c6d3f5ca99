package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkChanged(t *testing.T) {
	root := NewBaseAggregateRoot()
	created := root.UpdatedAt

	root.MarkChanged()
	root.MarkChanged()

	assert.Equal(t, 3, root.Version)
	assert.False(t, root.UpdatedAt.Before(created))
}

func TestNewTenantAggregateRoot(t *testing.T) {
	t.Run("stamps books and actor", func(t *testing.T) {
		scope := NewRequestScope(uuid.New(), uuid.New(), uuid.New())
		root := NewTenantAggregateRoot(scope)

		assert.Equal(t, scope.TenantID, root.TenantID)
		require.NotNil(t, root.CompanyID)
		assert.Equal(t, scope.CompanyID, *root.CompanyID)
		require.NotNil(t, root.CreatedBy)
		assert.Equal(t, scope.ActorID, *root.CreatedBy)
		assert.Equal(t, 1, root.Version)
	})

	t.Run("system scope has no actor", func(t *testing.T) {
		root := NewTenantAggregateRoot(NewRequestScope(uuid.New(), uuid.Nil, uuid.Nil))
		assert.Nil(t, root.CompanyID)
		assert.Nil(t, root.CreatedBy)
	})
}

func TestBelongsTo(t *testing.T) {
	tenant, company := uuid.New(), uuid.New()
	owned := NewTenantAggregateRoot(NewRequestScope(tenant, company, uuid.New()))
	tenantWide := NewTenantAggregateRoot(NewRequestScope(tenant, uuid.Nil, uuid.New()))

	tests := []struct {
		name  string
		root  TenantAggregateRoot
		scope RequestScope
		want  bool
	}{
		{"same company", owned, NewRequestScope(tenant, company, uuid.Nil), true},
		{"tenant-wide scope", owned, NewRequestScope(tenant, uuid.Nil, uuid.Nil), true},
		{"other company", owned, NewRequestScope(tenant, uuid.New(), uuid.Nil), false},
		{"other tenant", owned, NewRequestScope(uuid.New(), company, uuid.Nil), false},
		{"tenant-wide row seen by a company", tenantWide, NewRequestScope(tenant, company, uuid.Nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.root.BelongsTo(tt.scope))
		})
	}
}
