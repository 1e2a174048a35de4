package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---

// GetBatch returns a batch record together with its state as of this transaction
// and the current token owner.
func (s *VaccineRegistryContract) GetBatch(ctx contractapi.TransactionContextInterface, tokenID uint64) (*model.BatchDetails, error) {
	logger.Debugf("GetBatch: Querying batch %d", tokenID)
	batch, err := s.getBatchByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	owner, err := NewTokenIssuer(ctx, NewAccessControl(ctx)).OwnerOf(tokenID)
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	return &model.BatchDetails{
		Batch:          batch,
		EffectiveState: batch.EffectiveState(now),
		Expired:        batch.IsExpiredAt(now),
		TokenOwner:     owner,
	}, nil
}

// GetAllBatches returns every batch record ordered by token id.
func (s *VaccineRegistryContract) GetAllBatches(ctx contractapi.TransactionContextInterface) ([]*model.BatchRecord, error) {
	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(batchObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("GetAllBatches: failed to get batches iterator: %w", err)
	}
	defer iterator.Close()

	batches := collectBatches("GetAllBatches", iterator, nil)
	logger.Debugf("GetAllBatches: Retrieved %d batches", len(batches))
	return batches, nil
}

// GetBatchesByLot returns the batches registered under lot. Lots are not unique.
func (s *VaccineRegistryContract) GetBatchesByLot(ctx contractapi.TransactionContextInterface, lot string) ([]*model.BatchRecord, error) {
	if err := s.validateRequiredString(lot, "lot", maxStringInputLength); err != nil {
		return nil, fmt.Errorf("GetBatchesByLot: %w", err)
	}
	if err := s.validateKeyAttribute(lot, "lot"); err != nil {
		return nil, fmt.Errorf("GetBatchesByLot: %w", err)
	}
	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(lotIndexObjectType, []string{lot})
	if err != nil {
		return nil, fmt.Errorf("GetBatchesByLot: failed to get lot index iterator: %w", err)
	}
	defer iterator.Close()

	batches := []*model.BatchRecord{}
	for iterator.HasNext() {
		queryResponse, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("GetBatchesByLot: Error iterating lot index for '%s': %v. Skipping.", lot, iterErr)
			continue
		}
		_, parts, splitErr := ctx.GetStub().SplitCompositeKey(queryResponse.Key)
		if splitErr != nil || len(parts) != 2 {
			logger.Warningf("GetBatchesByLot: Malformed lot index key '%s'. Skipping.", queryResponse.Key)
			continue
		}
		tokenID, scanErr := strconv.ParseUint(parts[1], 10, 64)
		if scanErr != nil {
			logger.Warningf("GetBatchesByLot: Bad token id in lot index key '%s': %v. Skipping.", queryResponse.Key, scanErr)
			continue
		}
		batch, getErr := s.getBatchByID(ctx, tokenID)
		if getErr != nil {
			logger.Warningf("GetBatchesByLot: Lot index points at batch %d: %v. Skipping.", tokenID, getErr)
			continue
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// GetBatchesByCustodian returns the batches whose current custodian is principal.
func (s *VaccineRegistryContract) GetBatchesByCustodian(ctx contractapi.TransactionContextInterface, principal string) ([]*model.BatchRecord, error) {
	if err := s.validateRequiredString(principal, "principal", maxStringInputLength*4); err != nil {
		return nil, fmt.Errorf("GetBatchesByCustodian: %w", err)
	}
	return s.batchesHeldBy(ctx, "GetBatchesByCustodian", principal)
}

// GetMyBatches returns the batches the caller currently holds.
func (s *VaccineRegistryContract) GetMyBatches(ctx contractapi.TransactionContextInterface) ([]*model.BatchRecord, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetMyBatches: failed to get actor info: %w", err)
	}
	return s.batchesHeldBy(ctx, "GetMyBatches", actor.principal)
}

func (s *VaccineRegistryContract) batchesHeldBy(ctx contractapi.TransactionContextInterface, op, principal string) ([]*model.BatchRecord, error) {
	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(batchObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get batches iterator: %w", op, err)
	}
	defer iterator.Close()

	batches := collectBatches(op, iterator, func(b *model.BatchRecord) bool {
		return b.Custodian == principal
	})
	logger.Infof("%s: Found %d batches held by '%s'", op, len(batches), principal)
	return batches, nil
}

// collectBatches drains iterator, keeping the records accepted by keep (all of
// them when keep is nil). Unreadable entries are logged and skipped.
func collectBatches(op string, iterator shim.StateQueryIteratorInterface, keep func(*model.BatchRecord) bool) []*model.BatchRecord {
	batches := []*model.BatchRecord{}
	for iterator.HasNext() {
		queryResponse, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("%s: Error iterating results: %v. Skipping.", op, iterErr)
			continue
		}
		var batch model.BatchRecord
		if err := json.Unmarshal(queryResponse.Value, &batch); err != nil {
			logger.Warningf("%s: Error unmarshalling batch '%s': %v. Skipping.", op, queryResponse.Key, err)
			continue
		}
		ensureBatchSchemaCompliance(&batch)
		if keep == nil || keep(&batch) {
			batches = append(batches, &batch)
		}
	}
	return batches
}
