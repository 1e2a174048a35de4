package contract

import (
	"errors"
	"fmt"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Provisioning ---

// BootstrapLedger makes the caller the first admin. It fails once any admin exists.
func (s *VaccineRegistryContract) BootstrapLedger(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Attempting to bootstrap ledger with initial admin...")
	ac := NewAccessControl(ctx)

	anyAdminAlreadyExists, err := ac.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}
	if anyAdminAlreadyExists {
		msg := "system already has admins or is bootstrapped. BootstrapLedger should not be re-run."
		logger.Info(msg)
		return errors.New(msg)
	}

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}
	if err := ac.MakeAdmin(actor.principal, actor.principal); err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}
	logger.Infof("BootstrapLedger: Ledger bootstrapped. Identity '%s' (MSP '%s') is now an admin.", actor.principal, actor.mspID)
	return nil
}

// WireRegistryMinter grants the MINTER capability on the batch token to the
// registry itself. Admin only.
func (s *VaccineRegistryContract) WireRegistryMinter(ctx contractapi.TransactionContextInterface) error {
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return fmt.Errorf("WireRegistryMinter: %w", err)
	}
	if err := ac.GrantRole(caller, model.RoleMinter, model.RegistryPrincipal); err != nil {
		return fmt.Errorf("WireRegistryMinter: %w", err)
	}
	logger.Infof("WireRegistryMinter: '%s' may now mint batch tokens", model.RegistryPrincipal)
	return nil
}
