package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var tokenLogger = flogging.MustGetLogger("vaxtrace.token")

const (
	tokenObjectType = "BatchToken" // attribute: zero-padded token id
	tokenCounterKey = "BatchTokenCounter"
)

// TokenOwnership is the ledger value stored for each minted batch token.
type TokenOwnership struct {
	ObjectType     string    `json:"objectType"`
	TokenID        uint64    `json:"tokenId"`
	Owner          string    `json:"owner"`
	MintedBy       string    `json:"mintedBy"`
	MintedAt       time.Time `json:"mintedAt"`
	LastTransferAt time.Time `json:"lastTransferAt"`
}

// MinterGrant proves that a principal held the MINTER capability when the grant
// was issued. It can only be obtained from TokenIssuer.ProveMinter.
type MinterGrant struct {
	principal string
}

// Principal returns the principal the grant was issued to.
func (g MinterGrant) Principal() string {
	return g.principal
}

// TokenIssuer mints and tracks non-fungible batch identities.
type TokenIssuer struct {
	Ctx contractapi.TransactionContextInterface
	ac  *AccessControl
}

// NewTokenIssuer creates a TokenIssuer that checks capabilities against ac.
func NewTokenIssuer(ctx contractapi.TransactionContextInterface, ac *AccessControl) *TokenIssuer {
	return &TokenIssuer{Ctx: ctx, ac: ac}
}

func tokenKeyPart(tokenID uint64) string {
	return fmt.Sprintf("%020d", tokenID)
}

func (ti *TokenIssuer) createTokenKey(tokenID uint64) (string, error) {
	return ti.Ctx.GetStub().CreateCompositeKey(tokenObjectType, []string{tokenKeyPart(tokenID)})
}

// ProveMinter returns a grant for principal, or ErrForbidden if it lacks MINTER.
func (ti *TokenIssuer) ProveMinter(principal string) (MinterGrant, error) {
	if err := ti.ac.RequireCapability(model.RoleMinter, principal); err != nil {
		return MinterGrant{}, err
	}
	return MinterGrant{principal: principal}, nil
}

// TotalMinted returns the number of tokens minted so far, which is also the
// highest token id in use.
func (ti *TokenIssuer) TotalMinted() (uint64, error) {
	counterBytes, err := ti.Ctx.GetStub().GetState(tokenCounterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read token counter: %w", err)
	}
	if counterBytes == nil {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(counterBytes), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt token counter '%s': %w", string(counterBytes), err)
	}
	return n, nil
}

// Mint assigns a fresh token id to owner. Ids start at 1 and are never reused.
func (ti *TokenIssuer) Mint(grant MinterGrant, owner string) (uint64, error) {
	if err := ti.ac.RequireCapability(model.RoleMinter, grant.principal); err != nil {
		return 0, fmt.Errorf("Mint: %w", err)
	}
	if strings.TrimSpace(owner) == "" {
		return 0, fmt.Errorf("Mint: %w: owner cannot be empty", ErrInvalidInput)
	}
	last, err := ti.TotalMinted()
	if err != nil {
		return 0, fmt.Errorf("Mint: %w", err)
	}
	tokenID := last + 1

	ts, err := ti.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("Mint: failed to get transaction timestamp: %w", err)
	}
	now := ts.AsTime()

	ownership := TokenOwnership{
		ObjectType:     tokenObjectType,
		TokenID:        tokenID,
		Owner:          owner,
		MintedBy:       grant.principal,
		MintedAt:       now,
		LastTransferAt: now,
	}
	key, err := ti.createTokenKey(tokenID)
	if err != nil {
		return 0, fmt.Errorf("Mint: failed to create key for token %d: %w", tokenID, err)
	}
	ownershipBytes, err := json.Marshal(ownership)
	if err != nil {
		return 0, fmt.Errorf("Mint: failed to marshal token %d: %w", tokenID, err)
	}
	if err := ti.Ctx.GetStub().PutState(tokenCounterKey, []byte(strconv.FormatUint(tokenID, 10))); err != nil {
		return 0, fmt.Errorf("Mint: failed to advance token counter: %w", err)
	}
	if err := ti.Ctx.GetStub().PutState(key, ownershipBytes); err != nil {
		return 0, fmt.Errorf("Mint: failed to save token %d: %w", tokenID, err)
	}
	tokenLogger.Infof("Token %d minted to '%s' by '%s'", tokenID, owner, grant.principal)
	return tokenID, nil
}

func (ti *TokenIssuer) getOwnership(tokenID uint64) (*TokenOwnership, error) {
	key, err := ti.createTokenKey(tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for token %d: %w", tokenID, err)
	}
	ownershipBytes, err := ti.Ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read token %d: %w", tokenID, err)
	}
	if ownershipBytes == nil {
		return nil, fmt.Errorf("%w: token %d does not exist", ErrNotFound, tokenID)
	}
	var ownership TokenOwnership
	if err := json.Unmarshal(ownershipBytes, &ownership); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token %d: %w", tokenID, err)
	}
	return &ownership, nil
}

// OwnerOf returns the current owner of tokenID.
func (ti *TokenIssuer) OwnerOf(tokenID uint64) (string, error) {
	ownership, err := ti.getOwnership(tokenID)
	if err != nil {
		return "", err
	}
	return ownership.Owner, nil
}

// Transfer moves tokenID to a new owner. Only a MINTER holder may transfer; the
// registry uses it to mirror custody.
func (ti *TokenIssuer) Transfer(grant MinterGrant, tokenID uint64, to string) error {
	if err := ti.ac.RequireCapability(model.RoleMinter, grant.principal); err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("Transfer: %w: recipient cannot be empty", ErrInvalidInput)
	}
	ownership, err := ti.getOwnership(tokenID)
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}
	if ownership.Owner == to {
		return nil
	}
	ts, err := ti.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return fmt.Errorf("Transfer: failed to get transaction timestamp: %w", err)
	}
	from := ownership.Owner
	ownership.Owner = to
	ownership.LastTransferAt = ts.AsTime()

	key, err := ti.createTokenKey(tokenID)
	if err != nil {
		return fmt.Errorf("Transfer: failed to create key for token %d: %w", tokenID, err)
	}
	ownershipBytes, err := json.Marshal(ownership)
	if err != nil {
		return fmt.Errorf("Transfer: failed to marshal token %d: %w", tokenID, err)
	}
	if err := ti.Ctx.GetStub().PutState(key, ownershipBytes); err != nil {
		return fmt.Errorf("Transfer: failed to save token %d: %w", tokenID, err)
	}
	tokenLogger.Infof("Token %d transferred from '%s' to '%s'", tokenID, from, to)
	return nil
}
