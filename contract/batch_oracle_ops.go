package contract

import (
	"encoding/json"
	"fmt"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Oracle Feed ---

// ReportTemperature records an oracle reading (tenths of a degree) for a batch. A
// reading outside [minTemp, maxTemp] flags the batch permanently, however far
// out it is.
func (s *VaccineRegistryContract) ReportTemperature(ctx contractapi.TransactionContextInterface, tokenID uint64, reading int32) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ReportTemperature: failed to get actor info: %w", err)
	}
	ac := NewAccessControl(ctx)
	if err := ac.RequireRole(model.RoleOracleUpdater, actor.principal); err != nil {
		return fmt.Errorf("ReportTemperature: %w", err)
	}

	batch, err := s.getBatchByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("ReportTemperature: %w", err)
	}
	if batch.State == model.StateAdministered {
		return fmt.Errorf("ReportTemperature: %w: batch %d was already administered", ErrInvalidState, tokenID)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ReportTemperature: %w", err)
	}

	excursion := !model.WithinRange(reading, batch.MinTemp, batch.MaxTemp)
	seq := batch.ReadingCount + 1
	entry := model.TemperatureReading{
		ObjectType: readingObjectType,
		TokenID:    tokenID,
		Seq:        seq,
		Reading:    reading,
		ReportedBy: actor.principal,
		ReportedAt: now,
		TxID:       ctx.GetStub().GetTxID(),
		Excursion:  excursion,
	}
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ReportTemperature: failed to marshal reading for batch %d: %w", tokenID, err)
	}
	readingKey, err := ctx.GetStub().CreateCompositeKey(readingObjectType, []string{tokenKeyPart(tokenID), fmt.Sprintf("%020d", seq)})
	if err != nil {
		return fmt.Errorf("ReportTemperature: failed to create reading key: %w", err)
	}
	if err := ctx.GetStub().PutState(readingKey, entryBytes); err != nil {
		return fmt.Errorf("ReportTemperature: failed to save reading for batch %d: %w", tokenID, err)
	}
	batch.ReadingCount = seq
	batch.LastUpdatedAt = now

	if excursion {
		batch.Flagged = true
		batch.ExcursionCount++
		if !batch.HasFlagReason(model.FlagExcursion) {
			batch.FlagReasons = append(batch.FlagReasons, model.FlagExcursion)
		}
		if err := s.emitBatchEvent(ctx, batch, model.EventExcursionDetected, actor, model.ExcursionDetected{
			TokenID:    tokenID,
			Lot:        batch.Lot,
			Reading:    reading,
			MinTemp:    batch.MinTemp,
			MaxTemp:    batch.MaxTemp,
			ReportedBy: actor.principal,
		}); err != nil {
			return fmt.Errorf("ReportTemperature: %w", err)
		}
		logger.Warningf("Excursion on batch %d: reading %d outside [%d, %d], batch flagged", tokenID, reading, batch.MinTemp, batch.MaxTemp)
	} else {
		logger.Debugf("Reading %d for batch %d within [%d, %d]", reading, tokenID, batch.MinTemp, batch.MaxTemp)
	}

	if err := s.putBatch(ctx, batch); err != nil {
		return fmt.Errorf("ReportTemperature: %w", err)
	}
	return nil
}

// GetTemperatureReadings returns every reading reported for a batch, oldest first.
// Open to the oracle and to regulators.
func (s *VaccineRegistryContract) GetTemperatureReadings(ctx contractapi.TransactionContextInterface, tokenID uint64) ([]model.TemperatureReading, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTemperatureReadings: failed to get actor info: %w", err)
	}
	if err := s.requireAnyRole(ctx, actor.principal, model.RoleRegulator, model.RoleOracleUpdater); err != nil {
		return nil, fmt.Errorf("GetTemperatureReadings: %w", err)
	}
	if _, err := s.getBatchByID(ctx, tokenID); err != nil {
		return nil, fmt.Errorf("GetTemperatureReadings: %w", err)
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(readingObjectType, []string{tokenKeyPart(tokenID)})
	if err != nil {
		return nil, fmt.Errorf("GetTemperatureReadings: failed to get readings iterator: %w", err)
	}
	defer iterator.Close()

	readings := []model.TemperatureReading{}
	for iterator.HasNext() {
		queryResponse, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("GetTemperatureReadings: Error iterating readings for batch %d: %v. Skipping.", tokenID, iterErr)
			continue
		}
		var r model.TemperatureReading
		if err := json.Unmarshal(queryResponse.Value, &r); err != nil {
			logger.Warningf("GetTemperatureReadings: Failed to unmarshal reading '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// requireAnyRole passes if principal holds at least one of roles.
func (s *VaccineRegistryContract) requireAnyRole(ctx contractapi.TransactionContextInterface, principal string, roles ...model.Role) error {
	ac := NewAccessControl(ctx)
	for _, role := range roles {
		has, err := ac.HasRole(role, principal)
		if err != nil {
			return err
		}
		if has {
			return nil
		}
	}
	return fmt.Errorf("%w: identity '%s' holds none of the roles %v", ErrUnauthorized, principal, roles)
}
