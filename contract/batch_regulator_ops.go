package contract

import (
	"encoding/json"
	"fmt"

	"vaxtrace/model"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Regulator Operations ---

// Recall flags a batch in any state other than ADMINISTERED. Recalling an already
// recalled batch records the newer recall; the flag itself never clears.
func (s *VaccineRegistryContract) Recall(ctx contractapi.TransactionContextInterface, tokenID uint64, reason string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("Recall: failed to get actor info: %w", err)
	}
	ac := NewAccessControl(ctx)
	if err := ac.RequireRole(model.RoleRegulator, actor.principal); err != nil {
		return fmt.Errorf("Recall: %w", err)
	}
	if err := s.validateRequiredString(reason, "reason", maxRecallReasonLength); err != nil {
		return fmt.Errorf("Recall: %w", err)
	}

	batch, err := s.getBatchByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("Recall: %w", err)
	}
	if batch.State == model.StateAdministered {
		return fmt.Errorf("Recall: %w: batch %d was already administered", ErrInvalidState, tokenID)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("Recall: %w", err)
	}

	txID := ctx.GetStub().GetTxID()
	if batch.RecallInfo.IsRecalled {
		logger.Warningf("Batch %d was already recalled under '%s'; recording new recall from tx '%s'", tokenID, batch.RecallInfo.RecallID, txID)
	}
	recallID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("recall/%s/%d", txID, tokenID))).String()

	batch.Flagged = true
	if !batch.HasFlagReason(model.FlagRecall) {
		batch.FlagReasons = append(batch.FlagReasons, model.FlagRecall)
	}
	batch.RecallInfo = model.RecallInfo{
		IsRecalled: true,
		RecallID:   recallID,
		Reason:     reason,
		RecalledBy: actor.principal,
		RecalledAt: now,
	}
	batch.LastUpdatedAt = now

	if err := s.emitBatchEvent(ctx, batch, model.EventBatchRecalled, actor, model.BatchRecalled{
		TokenID:    tokenID,
		Lot:        batch.Lot,
		RecallID:   recallID,
		Reason:     reason,
		RecalledBy: actor.principal,
	}); err != nil {
		return fmt.Errorf("Recall: %w", err)
	}
	if err := s.putBatch(ctx, batch); err != nil {
		return fmt.Errorf("Recall: %w", err)
	}
	logger.Infof("Batch %d recalled by '%s' (RecallID: %s)", tokenID, actor.principal, recallID)
	return nil
}

// GetBatchAuditTrail returns every event recorded for a batch in emission order.
func (s *VaccineRegistryContract) GetBatchAuditTrail(ctx contractapi.TransactionContextInterface, tokenID uint64) ([]model.AuditEvent, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBatchAuditTrail: failed to get actor info: %w", err)
	}
	ac := NewAccessControl(ctx)
	if err := ac.RequireRole(model.RoleRegulator, actor.principal); err != nil {
		return nil, fmt.Errorf("GetBatchAuditTrail: %w", err)
	}
	if _, err := s.getBatchByID(ctx, tokenID); err != nil {
		return nil, fmt.Errorf("GetBatchAuditTrail: %w", err)
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(auditObjectType, []string{tokenKeyPart(tokenID)})
	if err != nil {
		return nil, fmt.Errorf("GetBatchAuditTrail: failed to get audit iterator: %w", err)
	}
	defer iterator.Close()

	trail := []model.AuditEvent{}
	for iterator.HasNext() {
		queryResponse, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("GetBatchAuditTrail: Error iterating audit entries for batch %d: %v. Skipping.", tokenID, iterErr)
			continue
		}
		var entry model.AuditEvent
		if err := json.Unmarshal(queryResponse.Value, &entry); err != nil {
			logger.Warningf("GetBatchAuditTrail: Failed to unmarshal audit entry '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		trail = append(trail, entry)
	}
	logger.Debugf("GetBatchAuditTrail: %d entries for batch %d", len(trail), tokenID)
	return trail, nil
}
