package contract

import (
	"fmt"
	"math"
	"time"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Manufacturer Operations ---

// MintBatch registers a new vaccine batch and returns its token ID. expiry is a
// unix timestamp in seconds; temperatures are tenths of a degree.
func (s *VaccineRegistryContract) MintBatch(ctx contractapi.TransactionContextInterface,
	lot string, expiry uint64, minTemp int32, maxTemp int32, metadataHash string, origin string) (uint64, error) {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("MintBatch: failed to get actor info: %w", err)
	}
	reg := newRegistry(ctx)
	if err := reg.ac.RequireRole(model.RoleManufacturer, actor.principal); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}

	logger.Infof("Manufacturer '%s' minting batch for lot '%s'", actor.principal, lot)

	if err := s.validateRequiredString(lot, "lot", maxStringInputLength); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	if err := s.validateKeyAttribute(lot, "lot"); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	if err := s.validateRequiredString(origin, "origin", maxStringInputLength); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	if minTemp >= maxTemp {
		return 0, fmt.Errorf("MintBatch: %w: minTemp (%d) must be below maxTemp (%d)", ErrInvalidInput, minTemp, maxTemp)
	}
	hash, err := parseMetadataHash(metadataHash)
	if err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	if expiry > math.MaxInt64 {
		return 0, fmt.Errorf("MintBatch: %w: expiry %d out of range", ErrInvalidInput, expiry)
	}
	expiryAt := time.Unix(int64(expiry), 0).UTC()
	if !expiryAt.After(now) {
		return 0, fmt.Errorf("MintBatch: %w: expiry %s must be in the future (now %s)", ErrInvalidInput, expiryAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	grant, err := reg.minterGrant()
	if err != nil {
		return 0, fmt.Errorf("MintBatch: registry cannot mint: %w", err)
	}
	tokenID, err := reg.issuer.Mint(grant, actor.principal)
	if err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}

	batch := &model.BatchRecord{
		ObjectType:    batchObjectType,
		TokenID:       tokenID,
		Lot:           lot,
		Expiry:        expiryAt,
		MinTemp:       minTemp,
		MaxTemp:       maxTemp,
		MetadataHash:  hash,
		Origin:        origin,
		State:         model.StateMinted,
		Custodian:     actor.principal,
		Manufacturer:  actor.principal,
		Flagged:       false,
		FlagReasons:   []model.FlagReason{},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	lotKey, err := ctx.GetStub().CreateCompositeKey(lotIndexObjectType, []string{lot, tokenKeyPart(tokenID)})
	if err != nil {
		return 0, fmt.Errorf("MintBatch: failed to create lot index key: %w", err)
	}
	if err := ctx.GetStub().PutState(lotKey, []byte{0x00}); err != nil {
		return 0, fmt.Errorf("MintBatch: failed to save lot index for batch %d: %w", tokenID, err)
	}

	if err := s.emitBatchEvent(ctx, batch, model.EventBatchRegistered, actor, model.BatchRegistered{
		TokenID:      tokenID,
		Lot:          lot,
		Manufacturer: actor.principal,
		Expiry:       expiryAt,
		MinTemp:      minTemp,
		MaxTemp:      maxTemp,
		MetadataHash: hash,
		Origin:       origin,
	}); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	if err := s.putBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("MintBatch: %w", err)
	}
	logger.Infof("Batch %d (lot '%s') minted by '%s'", tokenID, lot, actor.principal)
	return tokenID, nil
}
