package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/rxledger/dlt-rx/chaincode/prescription-registry/prescriptionregistry"
)

func main() {
	contract := prescriptionregistry.NewSmartContract()
	if name := os.Getenv("CREDENTIAL_CHAINCODE"); name != "" {
		contract.CredentialChaincode = name
	}

	registryChaincode, err := contractapi.NewChaincode(contract)
	if err != nil {
		log.Panicf("Error creating PrescriptionRegistry chaincode: %v", err)
	}

	if err := registryChaincode.Start(); err != nil {
		log.Panicf("Error starting PrescriptionRegistry chaincode: %v", err)
	}
}
