package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"vaxtrace/model"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Object types for the secondary records kept next to each batch.
const (
	lotIndexObjectType = "BatchByLot"         // attributes: lot, token
	auditObjectType    = "BatchEvent"         // attributes: token, seq
	readingObjectType  = "TemperatureReading" // attributes: token, seq
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *VaccineRegistryContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func (s *VaccineRegistryContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	ac := NewAccessControl(ctx)
	principal, err := ac.CurrentPrincipal()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's identity: %w", err)
	}
	return &actorInfo{principal: principal, mspID: ac.CurrentMSPID()}, nil
}

func (s *VaccineRegistryContract) createBatchCompositeKey(ctx contractapi.TransactionContextInterface, tokenID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(batchObjectType, []string{tokenKeyPart(tokenID)})
}

// --- Validation Helper Functions ---

func (s *VaccineRegistryContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidInput, field, max)
	}
	return nil
}

// validateKeyAttribute rejects values the ledger cannot embed in a composite key.
func (s *VaccineRegistryContract) validateKeyAttribute(input, field string) error {
	if !utf8.ValidString(input) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, field)
	}
	if strings.ContainsAny(input, "\x00\U0010FFFF") {
		return fmt.Errorf("%w: %s contains a reserved character", ErrInvalidInput, field)
	}
	return nil
}

// parseMetadataHash normalizes a 32-byte hex digest (optionally 0x-prefixed) to
// lowercase 0x form. The all-zero digest is rejected.
func parseMetadataHash(input string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(input), "0x"), "0X")
	digest, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: metadataHash is not valid hex: %v", ErrInvalidInput, err)
	}
	if len(digest) != 32 {
		return "", fmt.Errorf("%w: metadataHash must be 32 bytes, got %d", ErrInvalidInput, len(digest))
	}
	nonZero := false
	for _, b := range digest {
		if b != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return "", fmt.Errorf("%w: metadataHash cannot be zero", ErrInvalidInput)
	}
	return "0x" + hex.EncodeToString(digest), nil
}

// --- Record access ---

// getBatchByID is an internal helper to retrieve and unmarshal a batch record.
func (s *VaccineRegistryContract) getBatchByID(ctx contractapi.TransactionContextInterface, tokenID uint64) (*model.BatchRecord, error) {
	key, err := s.createBatchCompositeKey(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for batch %d: %w", tokenID, err)
	}
	batchBytes, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %d from ledger: %w", tokenID, err)
	}
	if batchBytes == nil {
		return nil, fmt.Errorf("%w: batch with token ID %d does not exist", ErrNotFound, tokenID)
	}
	var batch model.BatchRecord
	if err := json.Unmarshal(batchBytes, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %d data: %w", tokenID, err)
	}
	ensureBatchSchemaCompliance(&batch)
	return &batch, nil
}

func (s *VaccineRegistryContract) putBatch(ctx contractapi.TransactionContextInterface, batch *model.BatchRecord) error {
	key, err := s.createBatchCompositeKey(ctx, batch.TokenID)
	if err != nil {
		return fmt.Errorf("failed to create key for batch %d: %w", batch.TokenID, err)
	}
	ensureBatchSchemaCompliance(batch)
	batchBytes, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch %d: %w", batch.TokenID, err)
	}
	if err := ctx.GetStub().PutState(key, batchBytes); err != nil {
		return fmt.Errorf("failed to save batch %d to ledger: %w", batch.TokenID, err)
	}
	return nil
}

// ensureBatchSchemaCompliance keeps slice fields non-nil so JSON carries [] not null.
func ensureBatchSchemaCompliance(batch *model.BatchRecord) {
	if batch.FlagReasons == nil {
		batch.FlagReasons = []model.FlagReason{}
	}
}

// requireAdvanceable checks the shared preconditions of the custody transfers.
// Flagged and expired batches fail with ErrInvalidState plus the specific kind.
func requireAdvanceable(batch *model.BatchRecord, expected model.BatchState, now time.Time) error {
	if batch.State != expected {
		return fmt.Errorf("%w: batch %d is in state '%s', expected '%s'", ErrInvalidState, batch.TokenID, batch.State, expected)
	}
	if batch.Flagged {
		return fmt.Errorf("%w: %w: batch %d is flagged (%v)", ErrInvalidState, ErrFlagged, batch.TokenID, batch.FlagReasons)
	}
	if batch.IsExpiredAt(now) {
		return fmt.Errorf("%w: %w: batch %d expired at %s", ErrInvalidState, ErrExpired, batch.TokenID, batch.Expiry.Format(time.RFC3339))
	}
	return nil
}

// --- Events ---

// emitBatchEvent sets the chaincode event for this transaction and appends the
// same payload to the batch's audit trail. The caller persists the batch record
// afterwards so that EventCount stays in step with the trail.
func (s *VaccineRegistryContract) emitBatchEvent(ctx contractapi.TransactionContextInterface, batch *model.BatchRecord, eventName string, actor *actorInfo, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal '%s' payload for batch %d: %w", eventName, batch.TokenID, err)
	}

	txID := ctx.GetStub().GetTxID()
	seq := batch.EventCount + 1
	entry := model.AuditEvent{
		ObjectType: auditObjectType,
		EventID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%s/%d/%d", txID, eventName, batch.TokenID, seq))).String(),
		TokenID:    batch.TokenID,
		Seq:        seq,
		Name:       eventName,
		TxID:       txID,
		Actor:      actor.principal,
		Timestamp:  batch.LastUpdatedAt,
		Payload:    string(payloadBytes),
	}
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry for batch %d: %w", batch.TokenID, err)
	}
	auditKey, err := ctx.GetStub().CreateCompositeKey(auditObjectType, []string{tokenKeyPart(batch.TokenID), fmt.Sprintf("%020d", seq)})
	if err != nil {
		return fmt.Errorf("failed to create audit key for batch %d: %w", batch.TokenID, err)
	}
	if err := ctx.GetStub().PutState(auditKey, entryBytes); err != nil {
		return fmt.Errorf("failed to save audit entry for batch %d: %w", batch.TokenID, err)
	}
	if err := ctx.GetStub().SetEvent(eventName, payloadBytes); err != nil {
		return fmt.Errorf("failed to set event '%s' for batch %d: %w", eventName, batch.TokenID, err)
	}
	batch.EventCount = seq
	return nil
}
