package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewPaginationClampsBounds(t *testing.T) {
	p := NewPagination(0, 0, 120)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 50, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 0, p.Offset())

	p = NewPagination(3, 1000, 450)
	require.Equal(t, 200, p.PerPage)
	require.Equal(t, 400, p.Offset())
}

func TestAuditLogValidate(t *testing.T) {
	require.Error(t, AuditLog{Action: "invoice.generated", Entity: "invoice", EntityID: "x"}.Validate())
	require.Error(t, AuditLog{ActorID: uuid.New(), Entity: "invoice", EntityID: "x"}.Validate())
	require.NoError(t, AuditLog{ActorID: uuid.New(), Action: "invoice.generated", Entity: "invoice", EntityID: "x"}.Validate())
}
