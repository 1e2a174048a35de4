package main

import (
	"fmt"
	"os"

	"vaxtrace/config"
	"vaxtrace/contract"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("vaxtrace.main")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading configuration: " + err.Error())
	}
	if err := flogging.Global.ActivateSpec(cfg.LogSpec); err != nil {
		panic("Error activating log spec '" + cfg.LogSpec + "': " + err.Error())
	}

	cc, err := contractapi.NewChaincode(&contract.VaccineRegistryContract{}, &contract.BatchTokenContract{})
	if err != nil {
		panic("Error creating vaccine registry chaincode: " + err.Error())
	}

	if !cfg.ServerMode() {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	tlsProps, err := loadTLSProperties(cfg)
	if err != nil {
		panic("Error loading chaincode TLS material: " + err.Error())
	}
	server := &shim.ChaincodeServer{
		CCID:     cfg.CCID,
		Address:  cfg.Address,
		CC:       cc,
		TLSProps: tlsProps,
	}
	logger.Infof("Starting chaincode server '%s' on %s (tls disabled: %t)", cfg.CCID, cfg.Address, cfg.TLSDisabled)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}

func loadTLSProperties(cfg *config.Config) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}
	key, err := os.ReadFile(cfg.TLSKeyFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read key file: %w", err)
	}
	cert, err := os.ReadFile(cfg.TLSCertFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read cert file: %w", err)
	}
	var clientCA []byte
	if cfg.ClientCAFile != "" {
		if clientCA, err = os.ReadFile(cfg.ClientCAFile); err != nil {
			return shim.TLSProperties{}, fmt.Errorf("failed to read client CA file: %w", err)
		}
	}
	return shim.TLSProperties{
		Disabled:      false,
		Key:           key,
		Cert:          cert,
		ClientCACerts: clientCA,
	}, nil
}
