package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is a permission held by a principal. The set is closed: anything outside
// the constants below is rejected by ParseRole.
type Role uint8

const (
	RoleManufacturer Role = iota + 1
	RoleDistributor
	RoleClinic
	RoleRegulator
	RoleOracleUpdater
	RoleMinter // capability, only meaningful in the token scope
)

var roleNames = map[Role]string{
	RoleManufacturer:  "MANUFACTURER",
	RoleDistributor:   "DISTRIBUTOR",
	RoleClinic:        "CLINIC",
	RoleRegulator:     "REGULATOR",
	RoleOracleUpdater: "ORACLE_UPDATER",
	RoleMinter:        "MINTER",
}

// roleAliases maps names used by the provisioning scripts to canonical roles.
var roleAliases = map[string]Role{
	"ORACLE":      RoleOracleUpdater,
	"MINTER_ROLE": RoleMinter,
}

// RegistryPrincipal is the identity under which the registry contract holds its
// MINTER grant on the batch token.
const RegistryPrincipal = "contract::VaccineRegistry"

// Scope partitions role grants between the registry and the batch token.
type Scope string

const (
	ScopeRegistry Scope = "registry"
	ScopeToken    Scope = "token"
)

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsCapability reports whether r is a capability rather than a supply-chain role.
func (r Role) IsCapability() bool {
	return r == RoleMinter
}

// Scope returns the grant scope the role lives in.
func (r Role) Scope() Scope {
	if r.IsCapability() {
		return ScopeToken
	}
	return ScopeRegistry
}

// ParseRole resolves a role name, case-insensitively.
func ParseRole(name string) (Role, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for r, n := range roleNames {
		if n == upper {
			return r, nil
		}
	}
	if r, ok := roleAliases[upper]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("unknown role '%s'. Valid roles: %s", name, strings.Join(RoleNames(), ", "))
}

// RoleNames lists the canonical role names in declaration order.
func RoleNames() []string {
	names := make([]string, 0, len(roleNames))
	for r := RoleManufacturer; r <= RoleMinter; r++ {
		names = append(names, roleNames[r])
	}
	return names
}

// RoleGrant is the ledger value stored for each held (scope, role, principal).
type RoleGrant struct {
	ObjectType string    `json:"objectType"`
	Scope      Scope     `json:"scope"`
	Role       string    `json:"role"`
	Principal  string    `json:"principal"`
	GrantedBy  string    `json:"grantedBy"`
	GrantedAt  time.Time `json:"grantedAt"`
}

// AdminInfo records who holds admin rights over role assignment.
type AdminInfo struct {
	ObjectType string    `json:"objectType"`
	Principal  string    `json:"principal"`
	MSPID      string    `json:"mspId"`
	GrantedBy  string    `json:"grantedBy"`
	GrantedAt  time.Time `json:"grantedAt"`
}
