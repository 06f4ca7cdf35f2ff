package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/rxledger/dlt-rx/chaincode/credential-sbt/credentialsbt"
)

func main() {
	credentialChaincode, err := contractapi.NewChaincode(&credentialsbt.SmartContract{})
	if err != nil {
		log.Panicf("Error creating CredentialSBT chaincode: %v", err)
	}

	if err := credentialChaincode.Start(); err != nil {
		log.Panicf("Error starting CredentialSBT chaincode: %v", err)
	}
}
