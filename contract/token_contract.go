package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// BatchTokenContract exposes read access to batch token ownership. Minting and
// transfers only happen through the VaccineRegistry contract.
type BatchTokenContract struct {
	contractapi.Contract
}

// GetName namespaces the contract's functions as "BatchToken:<fn>".
func (t *BatchTokenContract) GetName() string {
	return "BatchToken"
}

func (t *BatchTokenContract) OwnerOf(ctx contractapi.TransactionContextInterface, tokenID uint64) (string, error) {
	tokenLogger.Debugf("Chaincode Call: OwnerOf token %d", tokenID)
	owner, err := NewTokenIssuer(ctx, NewAccessControl(ctx)).OwnerOf(tokenID)
	if err != nil {
		return "", fmt.Errorf("OwnerOf: %w", err)
	}
	return owner, nil
}

func (t *BatchTokenContract) TotalMinted(ctx contractapi.TransactionContextInterface) (uint64, error) {
	return NewTokenIssuer(ctx, NewAccessControl(ctx)).TotalMinted()
}
