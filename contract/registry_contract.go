package contract

import (
	"fmt"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("vaxtrace.registry")

// batchObjectType is used for composite keys and as the record's objectType.
const batchObjectType = "Batch"

// Constants for input validation and limits
const (
	maxStringInputLength  = 256
	maxRecallReasonLength = 512
)

// VaccineRegistryContract mints vaccine batch tokens and drives each batch through
// its custody lifecycle.
// @contract:VaccineRegistryContract
type VaccineRegistryContract struct {
	contractapi.Contract
}

// GetName namespaces the contract's functions as "VaccineRegistry:<fn>".
func (s *VaccineRegistryContract) GetName() string {
	return "VaccineRegistry"
}

// actorInfo holds the submitter of the current transaction.
type actorInfo struct {
	principal string
	mspID     string
}

// registry bundles the collaborators of one transaction. The issuer handle and the
// registry's own principal are fixed at construction; the MINTER proof is requested
// from the issuer when a mint or transfer actually happens.
type registry struct {
	ctx       contractapi.TransactionContextInterface
	ac        *AccessControl
	issuer    *TokenIssuer
	principal string
}

func newRegistry(ctx contractapi.TransactionContextInterface) *registry {
	ac := NewAccessControl(ctx)
	return &registry{
		ctx:       ctx,
		ac:        ac,
		issuer:    NewTokenIssuer(ctx, ac),
		principal: model.RegistryPrincipal,
	}
}

// minterGrant asks the issuer for proof of the registry's MINTER capability.
func (r *registry) minterGrant() (MinterGrant, error) {
	return r.issuer.ProveMinter(r.principal)
}

// Instantiate is called during chaincode instantiation.
func (s *VaccineRegistryContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("VaccineRegistryContract Instantiated/Upgraded")
}

// --- Role management ---

func (s *VaccineRegistryContract) GrantRole(ctx contractapi.TransactionContextInterface, roleName, principal string) error {
	logger.Infof("Chaincode Call: GrantRole '%s' to '%s'", roleName, principal)
	role, err := model.ParseRole(roleName)
	if err != nil {
		return fmt.Errorf("GrantRole: %w: %v", ErrInvalidInput, err)
	}
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return fmt.Errorf("GrantRole: %w", err)
	}
	return ac.GrantRole(caller, role, principal)
}

func (s *VaccineRegistryContract) RevokeRole(ctx contractapi.TransactionContextInterface, roleName, principal string) error {
	logger.Infof("Chaincode Call: RevokeRole '%s' from '%s'", roleName, principal)
	role, err := model.ParseRole(roleName)
	if err != nil {
		return fmt.Errorf("RevokeRole: %w: %v", ErrInvalidInput, err)
	}
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return fmt.Errorf("RevokeRole: %w", err)
	}
	return ac.RevokeRole(caller, role, principal)
}

func (s *VaccineRegistryContract) HasRole(ctx contractapi.TransactionContextInterface, roleName, principal string) (bool, error) {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return false, fmt.Errorf("HasRole: %w: %v", ErrInvalidInput, err)
	}
	return NewAccessControl(ctx).HasRole(role, principal)
}

// GetMyRoles lists the roles held by the caller.
func (s *VaccineRegistryContract) GetMyRoles(ctx contractapi.TransactionContextInterface) ([]string, error) {
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return nil, fmt.Errorf("GetMyRoles: %w", err)
	}
	return ac.RolesOf(caller)
}

func (s *VaccineRegistryContract) MakeAdmin(ctx contractapi.TransactionContextInterface, principal string) error {
	logger.Infof("Chaincode Call: MakeAdmin for '%s'", principal)
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return fmt.Errorf("MakeAdmin: %w", err)
	}
	return ac.MakeAdmin(caller, principal)
}

func (s *VaccineRegistryContract) RemoveAdmin(ctx contractapi.TransactionContextInterface, principal string) error {
	logger.Infof("Chaincode Call: RemoveAdmin for '%s'", principal)
	ac := NewAccessControl(ctx)
	caller, err := ac.CurrentPrincipal()
	if err != nil {
		return fmt.Errorf("RemoveAdmin: %w", err)
	}
	return ac.RemoveAdmin(caller, principal)
}
