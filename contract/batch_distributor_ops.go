package contract

import (
	"fmt"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Distributor Operations ---

// TransferToDistributor hands a freshly minted batch to the calling distributor.
func (s *VaccineRegistryContract) TransferToDistributor(ctx contractapi.TransactionContextInterface, tokenID uint64) error {
	return s.transferCustody(ctx, "TransferToDistributor", tokenID, model.RoleDistributor, model.StateMinted, model.StateInTransit)
}

// transferCustody moves a batch one step along the custody path to the caller,
// keeping the token owner in step with the custodian.
func (s *VaccineRegistryContract) transferCustody(ctx contractapi.TransactionContextInterface, op string, tokenID uint64,
	role model.Role, expected, next model.BatchState) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to get actor info: %w", op, err)
	}
	reg := newRegistry(ctx)
	if err := reg.ac.RequireRole(role, actor.principal); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Infof("%s '%s' taking custody of batch %d", role, actor.principal, tokenID)

	batch, err := s.getBatchByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !expected.CanAdvanceTo(next) {
		return fmt.Errorf("%s: %w: '%s' does not lead to '%s'", op, ErrInvalidState, expected, next)
	}
	if err := requireAdvanceable(batch, expected, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	grant, err := reg.minterGrant()
	if err != nil {
		return fmt.Errorf("%s: registry cannot move token %d: %w", op, tokenID, err)
	}

	from := batch.Custodian
	if err := reg.issuer.Transfer(grant, tokenID, actor.principal); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	batch.State = next
	batch.Custodian = actor.principal
	batch.LastUpdatedAt = now

	if err := s.emitBatchEvent(ctx, batch, model.EventCustodyTransferred, actor, model.CustodyTransferred{
		TokenID:  tokenID,
		Lot:      batch.Lot,
		From:     from,
		To:       actor.principal,
		NewState: next,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.putBatch(ctx, batch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Infof("Batch %d moved '%s' -> '%s', custodian '%s' -> '%s'", tokenID, expected, next, from, actor.principal)
	return nil
}
