package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ortholine/internal/config"
	"ortholine/internal/domain"
)

func TestCheck(t *testing.T) {
	table := New(config.Default())
	require.NoError(t, table.Check(domain.RoleMedical, domain.ActionSendToChief))

	err := table.Check(domain.RoleRegistration, domain.ActionSendToChief)
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
	assert.Equal(t, domain.PermissionDeniedError{Role: domain.RoleRegistration, Action: domain.ActionSendToChief}, err)

	assert.Error(t, table.Check("janitor", domain.ActionApprove))
	assert.Error(t, table.Check(domain.RoleChiefDoctor, "teleport"))
}

func TestRolesFor(t *testing.T) {
	table := New(config.Default())
	assert.Equal(t, []domain.Role{domain.RoleMedical, domain.RoleWarehouse, domain.RoleAdministration}, table.RolesFor(domain.ActionComplete))
	assert.Equal(t, []domain.Role{domain.RoleDispatcher}, table.RolesFor(domain.ActionAssignToProduction))
	for _, a := range domain.Actions {
		assert.NotEmpty(t, table.RolesFor(a), a)
	}
}

func TestCapabilities(t *testing.T) {
	table := New(config.Default())
	caps, ok := table.Capabilities(domain.RoleChiefDoctor, domain.LangEN)
	require.True(t, ok)
	assert.Equal(t, "Chief doctor", caps.Label)
	assert.Equal(t, []domain.Action{domain.ActionApprove, domain.ActionReject, domain.ActionReturnForRevision}, caps.Actions)
	assert.True(t, table.Sees(domain.RoleChiefDoctor, "reports"))
	assert.False(t, table.Sees(domain.RoleChiefDoctor, "invoices"))

	assert.True(t, table.Can(domain.RoleRegistration, "orders", OpCreate))
	assert.False(t, table.Can(domain.RoleWorkshop, "orders", OpCreate))
	assert.True(t, table.Can(domain.RoleWarehouse, "invoices", OpDelete))
	assert.False(t, table.Can(domain.RoleWarehouse, "reports", OpRead))
	assert.False(t, table.Can(domain.RoleAdministration, "orders", "archive"))

	caps.Modules["orders"] = config.ModuleRights{}
	again, _ := table.Capabilities(domain.RoleChiefDoctor, domain.LangEN)
	assert.True(t, again.Modules["orders"].Read, "capabilities must be a copy")

	_, ok = table.Capabilities("janitor", domain.LangRU)
	assert.False(t, ok)
}
