package credentialsbt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/rxledger/dlt-rx/pkg/types"
)

// Ledger key layout. Credentials live under credential_<tokenId>; the
// holder index maps an identity to its single live credential.
const (
	adminConfigKey  = "admin_config"
	counterKey      = "credential_counter"
	credentialKey   = "credential_%d"
	holderIndexKey  = "credholder_%s"
)

// SmartContract is the credential registry: the sole source of truth for
// who is currently an authorized doctor or pharmacist. Credentials are
// soul-bound: issued by the admin, never transferred, revoked at most once.
type SmartContract struct {
	contractapi.Contract
}

// InitLedger bootstraps the authorizer set with the deploying identity.
// Subsequent changes go through SetAdmin / AddAuthorizer.
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	existing, err := ctx.GetStub().GetState(adminConfigKey)
	if err != nil {
		return fmt.Errorf("failed to read admin config: %v", err)
	}
	if existing != nil {
		return nil
	}

	callerID, err := s.callerIdentity(ctx)
	if err != nil {
		return err
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return err
	}

	cfg := types.AdminConfig{
		Authorizers: []string{callerID},
		UpdatedAt:   now,
	}
	return s.putAdminConfig(ctx, &cfg)
}

// IssueCredential mints a new soul-bound credential for holder. Admin-only.
// A holder may have at most one live credential; re-issuance after
// revocation assigns a fresh token ID.
func (s *SmartContract) IssueCredential(ctx contractapi.TransactionContextInterface, holder, credentialType, licenseHash, specialty, metadataPointer string, validityYears int) (*types.Credential, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	credType := types.CredentialType(credentialType)
	if !credType.IsKnown() {
		return nil, types.NewValidationError(types.ErrCodeInvalidCredentialType, fmt.Sprintf("unknown credential type: %s", credentialType))
	}
	if holder == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidHolder, "holder identity is required")
	}
	if licenseHash == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidLicenseHash, "license hash is required")
	}
	if validityYears < 1 {
		return nil, types.NewValidationError(types.ErrCodeInvalidValidityPeriod, fmt.Sprintf("validity years must be positive, got %d", validityYears))
	}

	// One live credential per holder.
	holderKey := fmt.Sprintf(holderIndexKey, holder)
	existing, err := ctx.GetStub().GetState(holderKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read holder index: %v", err)
	}
	if existing != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidHolder, fmt.Sprintf("holder %s already has a live credential", holder))
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}

	tokenID, err := s.nextTokenID(ctx)
	if err != nil {
		return nil, err
	}

	credential := types.Credential{
		TokenID:         tokenID,
		Holder:          holder,
		CredentialType:  credType,
		LicenseHash:     licenseHash,
		Specialty:       specialty,
		MetadataPointer: metadataPointer,
		IssuedAt:        now,
		ExpiresAt:       now.AddDate(validityYears, 0, 0),
		IsActive:        true,
	}

	credentialJSON, err := json.Marshal(credential)
	if err != nil {
		return nil, err
	}

	if err := ctx.GetStub().PutState(fmt.Sprintf(credentialKey, tokenID), credentialJSON); err != nil {
		return nil, fmt.Errorf("failed to store credential: %v", err)
	}
	if err := ctx.GetStub().PutState(holderKey, []byte(strconv.FormatUint(tokenID, 10))); err != nil {
		return nil, fmt.Errorf("failed to store holder index: %v", err)
	}

	event := types.CredentialIssuedEvent{
		TokenID:        credential.TokenID,
		Holder:         credential.Holder,
		CredentialType: credential.CredentialType,
		Specialty:      credential.Specialty,
		IssuedAt:       credential.IssuedAt,
		ExpiresAt:      credential.ExpiresAt,
	}
	if err := s.emitEvent(ctx, types.EventCredentialIssued, event); err != nil {
		return nil, err
	}

	return &credential, nil
}

// RevokeCredential deactivates a credential. Admin-only. Revocation is
// terminal: revoking an already-revoked credential fails AlreadyRevoked so
// every attempt leaves an auditable transaction.
func (s *SmartContract) RevokeCredential(ctx contractapi.TransactionContextInterface, tokenID uint64) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	credential, err := s.readCredential(ctx, tokenID)
	if err != nil {
		return err
	}

	if !credential.IsActive {
		return types.NewStateConflictError(types.ErrCodeAlreadyRevoked, fmt.Sprintf("credential %d is already revoked", tokenID))
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return err
	}

	credential.IsActive = false
	credential.RevokedAt = &now

	credentialJSON, err := json.Marshal(credential)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(fmt.Sprintf(credentialKey, tokenID), credentialJSON); err != nil {
		return fmt.Errorf("failed to store credential: %v", err)
	}

	// Clear the holder index so the holder can be re-credentialed under a
	// new token ID. Guard against the index already pointing elsewhere.
	holderKey := fmt.Sprintf(holderIndexKey, credential.Holder)
	indexed, err := ctx.GetStub().GetState(holderKey)
	if err != nil {
		return fmt.Errorf("failed to read holder index: %v", err)
	}
	if indexed != nil && string(indexed) == strconv.FormatUint(tokenID, 10) {
		if err := ctx.GetStub().DelState(holderKey); err != nil {
			return fmt.Errorf("failed to clear holder index: %v", err)
		}
	}

	event := types.CredentialRevokedEvent{
		TokenID:   tokenID,
		Holder:    credential.Holder,
		RevokedAt: now,
	}
	return s.emitEvent(ctx, types.EventCredentialRevoked, event)
}

// GetCredential returns the full credential record for a token ID.
func (s *SmartContract) GetCredential(ctx contractapi.TransactionContextInterface, tokenID uint64) (*types.Credential, error) {
	return s.readCredential(ctx, tokenID)
}

// GetCredentialByHolder resolves a holder identity to its live credential.
// This is the lookup the prescription registry performs on every mutating
// call to authorize the caller.
func (s *SmartContract) GetCredentialByHolder(ctx contractapi.TransactionContextInterface, holder string) (*types.Credential, error) {
	indexed, err := ctx.GetStub().GetState(fmt.Sprintf(holderIndexKey, holder))
	if err != nil {
		return nil, fmt.Errorf("failed to read holder index: %v", err)
	}
	if indexed == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("no live credential for holder %s", holder))
	}

	tokenID, err := strconv.ParseUint(string(indexed), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt holder index for %s: %v", holder, err)
	}

	return s.readCredential(ctx, tokenID)
}

// IsValid reports whether a credential currently authorizes its holder:
// active and not past expiry at the transaction timestamp.
func (s *SmartContract) IsValid(ctx contractapi.TransactionContextInterface, tokenID uint64) (bool, error) {
	credential, err := s.readCredential(ctx, tokenID)
	if err != nil {
		return false, err
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return false, err
	}

	return credential.IsValid(now), nil
}

// SetAdmin replaces the authorizer set with a single identity. Admin-only.
func (s *SmartContract) SetAdmin(ctx contractapi.TransactionContextInterface, identity string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if identity == "" {
		return types.NewValidationError(types.ErrCodeInvalidHolder, "admin identity is required")
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return err
	}

	cfg := types.AdminConfig{
		Authorizers: []string{identity},
		UpdatedAt:   now,
	}
	return s.putAdminConfig(ctx, &cfg)
}

// AddAuthorizer adds an identity to the authorizer set. Admin-only. This is
// how the members of an external multisig are registered; the contract only
// ever checks set membership.
func (s *SmartContract) AddAuthorizer(ctx contractapi.TransactionContextInterface, identity string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if identity == "" {
		return types.NewValidationError(types.ErrCodeInvalidHolder, "authorizer identity is required")
	}

	cfg, err := s.readAdminConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Authorizes(identity) {
		return nil
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return err
	}

	cfg.Authorizers = append(cfg.Authorizers, identity)
	cfg.UpdatedAt = now
	return s.putAdminConfig(ctx, cfg)
}

// Helper functions

func (s *SmartContract) readCredential(ctx contractapi.TransactionContextInterface, tokenID uint64) (*types.Credential, error) {
	credentialJSON, err := ctx.GetStub().GetState(fmt.Sprintf(credentialKey, tokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to read credential from world state: %v", err)
	}
	if credentialJSON == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("credential %d does not exist", tokenID))
	}

	var credential types.Credential
	if err := json.Unmarshal(credentialJSON, &credential); err != nil {
		return nil, err
	}
	return &credential, nil
}

func (s *SmartContract) nextTokenID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	raw, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read token counter: %v", err)
	}

	var last uint64
	if raw != nil {
		last, err = strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt token counter: %v", err)
		}
	}

	next := last + 1
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to store token counter: %v", err)
	}
	return next, nil
}

func (s *SmartContract) readAdminConfig(ctx contractapi.TransactionContextInterface) (*types.AdminConfig, error) {
	raw, err := ctx.GetStub().GetState(adminConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin config: %v", err)
	}
	if raw == nil {
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "admin config not initialized")
	}

	var cfg types.AdminConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SmartContract) putAdminConfig(ctx contractapi.TransactionContextInterface, cfg *types.AdminConfig) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(adminConfigKey, cfgJSON)
}

func (s *SmartContract) requireAdmin(ctx contractapi.TransactionContextInterface) error {
	callerID, err := s.callerIdentity(ctx)
	if err != nil {
		return err
	}

	cfg, err := s.readAdminConfig(ctx)
	if err != nil {
		return err
	}

	if !cfg.Authorizes(callerID) {
		return types.NewAuthorizationError(types.ErrCodeUnauthorized, fmt.Sprintf("caller %s is not an authorized admin", callerID))
	}
	return nil
}

func (s *SmartContract) callerIdentity(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client ID: %v", err)
	}
	return id, nil
}

// txTime returns the transaction timestamp. Using the tx timestamp instead
// of the wall clock keeps validity evaluation deterministic across endorsers.
func (s *SmartContract) txTime(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get tx timestamp: %v", err)
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC(), nil
}

func (s *SmartContract) emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	eventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().SetEvent(name, eventJSON); err != nil {
		return fmt.Errorf("failed to emit %s event: %v", name, err)
	}
	return nil
}
