package contract

import (
	"testing"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (l *testLedger) hasRole(roleName, principal string) bool {
	l.t.Helper()
	var has bool
	require.NoError(l.t, l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		has, err = l.registry.HasRole(ctx, roleName, principal)
		return err
	}))
	return has
}

func (l *testLedger) grant(caller, roleName, principal string) error {
	return l.as(caller, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.GrantRole(ctx, roleName, principal)
	})
}

func TestBootstrapLedgerRunsOnce(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))

	assert.Error(t, l.as(adminID, l.registry.BootstrapLedger))
	assert.Error(t, l.as(strangerID, l.registry.BootstrapLedger))
}

func TestMakeAdmin(t *testing.T) {
	l := newTestLedger(t)

	err := l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.MakeAdmin(ctx, adminID)
	})
	assert.ErrorIs(t, err, ErrUnauthorized, "bootstrap caller may only promote itself")

	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.MakeAdmin(ctx, adminID)
	}))
	err = l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.MakeAdmin(ctx, strangerID)
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.MakeAdmin(ctx, regulatorID)
	}))
	require.NoError(t, l.grant(regulatorID, "CLINIC", clinicID), "second admin can grant")
}

func TestGrantAndRevokeRole(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))

	assert.False(t, l.hasRole("DISTRIBUTOR", distributorID))
	require.NoError(t, l.grant(adminID, "distributor", distributorID))
	assert.True(t, l.hasRole("DISTRIBUTOR", distributorID))
	require.NoError(t, l.grant(adminID, "DISTRIBUTOR", distributorID), "granting twice is a no-op")

	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.RevokeRole(ctx, "DISTRIBUTOR", distributorID)
	}))
	assert.False(t, l.hasRole("DISTRIBUTOR", distributorID))
	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.RevokeRole(ctx, "DISTRIBUTOR", distributorID)
	}), "revoking an absent role is a no-op")
}

func TestGrantRoleRejections(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))

	assert.ErrorIs(t, l.grant(strangerID, "CLINIC", strangerID), ErrUnauthorized)
	assert.ErrorIs(t, l.grant(adminID, "FARMER", clinicID), ErrInvalidInput)
	assert.ErrorIs(t, l.grant(adminID, "CLINIC", "  "), ErrInvalidInput)

	err := l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.RevokeRole(ctx, "CLINIC", clinicID)
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRoleAliasesAndScopes(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))

	require.NoError(t, l.grant(adminID, "ORACLE", oracleID))
	assert.True(t, l.hasRole("ORACLE_UPDATER", oracleID))

	require.NoError(t, l.grant(adminID, "MINTER_ROLE", manufacturerID))
	assert.True(t, l.hasRole("MINTER", manufacturerID))
	assert.False(t, l.hasRole("MANUFACTURER", manufacturerID), "capability grants no supply-chain role")
}

func TestGetMyRoles(t *testing.T) {
	l := newProvisionedLedger(t)
	require.NoError(t, l.grant(adminID, "REGULATOR", clinicID))

	var roles []string
	require.NoError(t, l.as(clinicID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		roles, err = l.registry.GetMyRoles(ctx)
		return err
	}))
	assert.Equal(t, []string{"CLINIC", "REGULATOR"}, roles)

	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		roles, err = l.registry.GetMyRoles(ctx)
		return err
	}))
	assert.Empty(t, roles, "admin rights are not roles")
}

func TestRequireCapability(t *testing.T) {
	l := newProvisionedLedger(t)
	require.NoError(t, l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		ac := NewAccessControl(ctx)
		assert.NoError(t, ac.RequireCapability(model.RoleMinter, model.RegistryPrincipal))
		assert.ErrorIs(t, ac.RequireCapability(model.RoleMinter, manufacturerID), ErrForbidden)
		assert.ErrorIs(t, ac.RequireCapability(model.RoleClinic, clinicID), ErrInvalidInput)
		assert.ErrorIs(t, ac.RequireRole(model.RoleRegulator, clinicID), ErrUnauthorized)
		assert.ErrorIs(t, ac.RequireRole(model.Role(99), clinicID), ErrInvalidInput)
		return nil
	}))
}

func TestRemoveAdmin(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))
	require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.MakeAdmin(ctx, regulatorID)
	}))

	removeAs := func(caller, target string) error {
		return l.as(caller, func(ctx contractapi.TransactionContextInterface) error {
			return l.registry.RemoveAdmin(ctx, target)
		})
	}
	assert.ErrorIs(t, removeAs(adminID, adminID), ErrInvalidInput)
	assert.ErrorIs(t, removeAs(strangerID, adminID), ErrUnauthorized)

	require.NoError(t, removeAs(adminID, regulatorID))
	assert.ErrorIs(t, l.grant(regulatorID, "CLINIC", clinicID), ErrUnauthorized)
	require.NoError(t, removeAs(adminID, regulatorID), "removing a non-admin is a no-op")
}
