package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var acLogger = flogging.MustGetLogger("vaxtrace.access")

// Object types for composite keys.
const (
	roleGrantObjectType = "RoleGrant" // attributes: scope, role, principal
	adminObjectType     = "AdminFlag" // attribute: principal
)

// AccessControl answers "does principal P hold role R" against world state and
// manages grants. It holds no business logic.
type AccessControl struct {
	Ctx contractapi.TransactionContextInterface
}

// NewAccessControl creates an AccessControl bound to the transaction context.
func NewAccessControl(ctx contractapi.TransactionContextInterface) *AccessControl {
	return &AccessControl{Ctx: ctx}
}

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

func (ac *AccessControl) createGrantKey(role model.Role, principal string) (string, error) {
	return ac.Ctx.GetStub().CreateCompositeKey(roleGrantObjectType, []string{string(role.Scope()), role.String(), principal})
}

func (ac *AccessControl) createAdminKey(principal string) (string, error) {
	return ac.Ctx.GetStub().CreateCompositeKey(adminObjectType, []string{principal})
}

func (ac *AccessControl) txTimestamp() (time.Time, error) {
	ts, err := ac.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// CurrentPrincipal returns the client identity ID of the transaction submitter.
func (ac *AccessControl) CurrentPrincipal() (string, error) {
	clientIdentity := ac.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		acLogger.Debugf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// CurrentMSPID returns the MSP of the submitter, or "" when unavailable.
func (ac *AccessControl) CurrentMSPID() string {
	clientIdentity := ac.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return ""
	}
	mspID, err := clientIdentity.GetMSPID()
	if err != nil {
		acLogger.Warningf("Could not determine MSPID of caller: %v", err)
		return ""
	}
	return mspID
}

// HasRole reports whether principal holds role.
func (ac *AccessControl) HasRole(role model.Role, principal string) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	if strings.TrimSpace(principal) == "" {
		return false, nil
	}
	key, err := ac.createGrantKey(role, principal)
	if err != nil {
		return false, fmt.Errorf("failed to create grant key for role '%s': %w", role, err)
	}
	grantBytes, err := ac.Ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error checking role '%s' for '%s': %w", role, principal, err)
	}
	return grantBytes != nil, nil
}

// RequireRole fails with ErrUnauthorized unless principal holds the supply-chain role.
func (ac *AccessControl) RequireRole(role model.Role, principal string) error {
	has, err := ac.HasRole(role, principal)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: identity '%s' does not have required role '%s'", ErrUnauthorized, principal, role)
	}
	acLogger.Debugf("Role check passed for role '%s' for principal '%s'.", role, principal)
	return nil
}

// RequireCapability fails with ErrForbidden unless principal holds the capability.
func (ac *AccessControl) RequireCapability(capability model.Role, principal string) error {
	if !capability.IsCapability() {
		return fmt.Errorf("%w: '%s' is not a capability", ErrInvalidInput, capability)
	}
	has, err := ac.HasRole(capability, principal)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: '%s' does not hold capability '%s'", ErrForbidden, principal, capability)
	}
	return nil
}

// RolesOf lists the role names principal holds across both scopes.
func (ac *AccessControl) RolesOf(principal string) ([]string, error) {
	roles := []string{}
	for _, name := range model.RoleNames() {
		role, _ := model.ParseRole(name)
		has, err := ac.HasRole(role, principal)
		if err != nil {
			return nil, err
		}
		if has {
			roles = append(roles, name)
		}
	}
	return roles, nil
}

// GrantRole records that principal holds role. Only admins may grant.
func (ac *AccessControl) GrantRole(caller string, role model.Role, principal string) error {
	if err := ac.RequireAdmin(caller); err != nil {
		return err
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return fmt.Errorf("%w: principal cannot be empty", ErrInvalidInput)
	}
	has, err := ac.HasRole(role, principal)
	if err != nil {
		return err
	}
	if has {
		acLogger.Infof("Role '%s' already granted to '%s'. No action needed.", role, principal)
		return nil
	}

	now, err := ac.txTimestamp()
	if err != nil {
		return err
	}
	grant := model.RoleGrant{
		ObjectType: roleGrantObjectType,
		Scope:      role.Scope(),
		Role:       role.String(),
		Principal:  principal,
		GrantedBy:  caller,
		GrantedAt:  now,
	}
	grantBytes, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal grant for role '%s': %w", role, err)
	}
	key, err := ac.createGrantKey(role, principal)
	if err != nil {
		return fmt.Errorf("failed to create grant key for role '%s': %w", role, err)
	}
	if err := ac.Ctx.GetStub().PutState(key, grantBytes); err != nil {
		return fmt.Errorf("failed to save grant of role '%s' to '%s': %w", role, principal, err)
	}
	acLogger.Infof("Role '%s' (scope %s) granted to '%s' by admin '%s'.", role, role.Scope(), principal, caller)
	return nil
}

// RevokeRole removes a grant. Revoking a role that is not held is a no-op.
func (ac *AccessControl) RevokeRole(caller string, role model.Role, principal string) error {
	if err := ac.RequireAdmin(caller); err != nil {
		return err
	}
	has, err := ac.HasRole(role, principal)
	if err != nil {
		return err
	}
	if !has {
		acLogger.Infof("Role '%s' not held by '%s'. No action taken.", role, principal)
		return nil
	}
	key, err := ac.createGrantKey(role, principal)
	if err != nil {
		return fmt.Errorf("failed to create grant key for role '%s': %w", role, err)
	}
	if err := ac.Ctx.GetStub().DelState(key); err != nil {
		return fmt.Errorf("failed to delete grant of role '%s' from '%s': %w", role, principal, err)
	}
	acLogger.Infof("Role '%s' revoked from '%s' by admin '%s'.", role, principal, caller)
	return nil
}

// IsAdmin reports whether principal holds admin rights over role assignment.
func (ac *AccessControl) IsAdmin(principal string) (bool, error) {
	if strings.TrimSpace(principal) == "" {
		return false, nil
	}
	key, err := ac.createAdminKey(principal)
	if err != nil {
		return false, fmt.Errorf("failed to create admin key for '%s': %w", principal, err)
	}
	flagBytes, err := ac.Ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error checking admin flag for '%s': %w", principal, err)
	}
	return flagBytes != nil, nil
}

// RequireAdmin fails with ErrUnauthorized unless principal is an admin.
func (ac *AccessControl) RequireAdmin(principal string) error {
	isAdmin, err := ac.IsAdmin(principal)
	if err != nil {
		return fmt.Errorf("failed to check admin status: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: caller '%s' is not an admin", ErrUnauthorized, principal)
	}
	return nil
}

// AnyAdminExists checks if any admin flag is set on the ledger.
func (ac *AccessControl) AnyAdminExists() (bool, error) {
	iterator, err := ac.Ctx.GetStub().GetStateByPartialCompositeKey(adminObjectType, []string{})
	if err != nil {
		return false, fmt.Errorf("failed to query admin records: %w", err)
	}
	defer iterator.Close()
	return iterator.HasNext(), nil
}

// MakeAdmin flags target as admin. With no admin on the ledger the caller may only
// make itself admin (bootstrap); afterwards only admins may add admins.
func (ac *AccessControl) MakeAdmin(caller, target string) error {
	anyAdmin, err := ac.AnyAdminExists()
	if err != nil {
		return err
	}
	if anyAdmin {
		if err := ac.RequireAdmin(caller); err != nil {
			return err
		}
	} else if caller != target {
		return fmt.Errorf("%w: bootstrap caller '%s' may only make itself admin", ErrUnauthorized, caller)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("%w: admin principal cannot be empty", ErrInvalidInput)
	}
	isAdmin, err := ac.IsAdmin(target)
	if err != nil {
		return err
	}
	if isAdmin {
		acLogger.Infof("Identity '%s' is already an admin. No action needed.", target)
		return nil
	}

	now, err := ac.txTimestamp()
	if err != nil {
		return err
	}
	info := model.AdminInfo{
		ObjectType: adminObjectType,
		Principal:  target,
		GrantedBy:  caller,
		GrantedAt:  now,
	}
	if target == caller {
		info.MSPID = ac.CurrentMSPID()
	}
	infoBytes, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal admin info for '%s': %w", target, err)
	}
	key, err := ac.createAdminKey(target)
	if err != nil {
		return fmt.Errorf("failed to create admin key for '%s': %w", target, err)
	}
	if err := ac.Ctx.GetStub().PutState(key, infoBytes); err != nil {
		return fmt.Errorf("failed to set admin flag for '%s': %w", target, err)
	}
	acLogger.Infof("Identity '%s' has been made an admin by '%s'.", target, caller)
	return nil
}

// RemoveAdmin clears target's admin flag. Admins cannot remove their own status,
// so at least one admin always remains.
func (ac *AccessControl) RemoveAdmin(caller, target string) error {
	if err := ac.RequireAdmin(caller); err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == caller {
		return fmt.Errorf("%w: admins cannot remove their own admin status", ErrInvalidInput)
	}
	isAdmin, err := ac.IsAdmin(target)
	if err != nil {
		return err
	}
	if !isAdmin {
		acLogger.Infof("Identity '%s' is not an admin. No action taken.", target)
		return nil
	}
	key, err := ac.createAdminKey(target)
	if err != nil {
		return fmt.Errorf("failed to create admin key for '%s': %w", target, err)
	}
	if err := ac.Ctx.GetStub().DelState(key); err != nil {
		return fmt.Errorf("failed to remove admin flag for '%s': %w", target, err)
	}
	acLogger.Infof("Admin privileges removed from '%s' by '%s'.", target, caller)
	return nil
}
