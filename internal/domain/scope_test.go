package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/ventas-api/internal/domain"
)

func TestScope_BranchFilter(t *testing.T) {
	admin := domain.Scope{UserID: "u1", Role: domain.RoleAdmin}
	user := domain.Scope{UserID: "u2", BranchID: "b1", Role: "user"}

	assert.Equal(t, "", admin.BranchFilter(""), "admin sin filtro ve todas las sucursales")
	assert.Equal(t, "b2", admin.BranchFilter("b2"))
	assert.Equal(t, "b1", user.BranchFilter("b2"), "un usuario no puede salir de su sucursal")
}

func TestScope_WriteBranch(t *testing.T) {
	b, err := domain.Scope{BranchID: "b1", Role: "user"}.WriteBranch("b9")
	assert.NoError(t, err)
	assert.Equal(t, "b1", b)

	b, err = domain.Scope{Role: domain.RoleAdmin}.WriteBranch("b9")
	assert.NoError(t, err)
	assert.Equal(t, "b9", b)

	_, err = domain.Scope{Role: domain.RoleAdmin}.WriteBranch("")
	assert.ErrorIs(t, err, domain.ErrBranchRequired)

	_, err = domain.Scope{Role: "user"}.WriteBranch("b1")
	assert.ErrorIs(t, err, domain.ErrBranchRequired)
}
