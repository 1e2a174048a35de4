package contract

import (
	"fmt"
	"time"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Clinic Operations ---

// TransferToClinic records receipt of an in-transit batch by the calling clinic.
func (s *VaccineRegistryContract) TransferToClinic(ctx contractapi.TransactionContextInterface, tokenID uint64) error {
	return s.transferCustody(ctx, "TransferToClinic", tokenID, model.RoleClinic, model.StateInTransit, model.StateAtClinic)
}

// Administer marks a batch held by the calling clinic as administered. A flagged
// batch is rejected before expiry is considered, and both before the state and
// custodian checks.
func (s *VaccineRegistryContract) Administer(ctx contractapi.TransactionContextInterface, tokenID uint64) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("Administer: failed to get actor info: %w", err)
	}
	ac := NewAccessControl(ctx)
	if err := ac.RequireRole(model.RoleClinic, actor.principal); err != nil {
		return fmt.Errorf("Administer: %w", err)
	}

	batch, err := s.getBatchByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("Administer: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("Administer: %w", err)
	}

	if batch.State == model.StateAdministered {
		return fmt.Errorf("Administer: %w: batch %d was already administered", ErrInvalidState, tokenID)
	}
	if batch.Flagged {
		return fmt.Errorf("Administer: %w: batch %d is flagged (%v) and can never be administered", ErrFlagged, tokenID, batch.FlagReasons)
	}
	if batch.IsExpiredAt(now) {
		return fmt.Errorf("Administer: %w: batch %d expired at %s", ErrExpired, tokenID, batch.Expiry.Format(time.RFC3339))
	}
	if batch.State != model.StateAtClinic {
		return fmt.Errorf("Administer: %w: batch %d is in state '%s', expected '%s'", ErrInvalidState, tokenID, batch.State, model.StateAtClinic)
	}
	if batch.Custodian != actor.principal {
		return fmt.Errorf("Administer: %w: caller '%s' is not the custodian of batch %d", ErrUnauthorized, actor.principal, tokenID)
	}

	batch.State = model.StateAdministered
	batch.LastUpdatedAt = now

	if err := s.emitBatchEvent(ctx, batch, model.EventBatchAdministered, actor, model.BatchAdministered{
		TokenID: tokenID,
		Lot:     batch.Lot,
		Clinic:  actor.principal,
	}); err != nil {
		return fmt.Errorf("Administer: %w", err)
	}
	if err := s.putBatch(ctx, batch); err != nil {
		return fmt.Errorf("Administer: %w", err)
	}
	logger.Infof("Batch %d administered by clinic '%s'", tokenID, actor.principal)
	return nil
}
