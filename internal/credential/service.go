package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/fabric"
	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/repository"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// IssueRequest carries the parameters for minting a credential
type IssueRequest struct {
	Holder          string `json:"holder"`
	CredentialType  string `json:"credential_type"`
	LicenseHash     string `json:"license_hash"`
	Specialty       string `json:"specialty,omitempty"`
	MetadataPointer string `json:"metadata_pointer,omitempty"`
	ValidityYears   int    `json:"validity_years"`
}

// Service fronts the credential chaincode for admin tooling. Ledger writes
// go through the invoker; successful results are mirrored into the
// off-chain index.
type Service struct {
	invoker     fabric.Invoker
	credentials repository.CredentialIndexRepositoryInterface
	chaincode   string
	logger      *logger.Logger
}

// NewService creates a new credential service
func NewService(invoker fabric.Invoker, credentials repository.CredentialIndexRepositoryInterface, cfg *config.FabricConfig, log *logger.Logger) *Service {
	return &Service{
		invoker:     invoker,
		credentials: credentials,
		chaincode:   cfg.CredentialCC,
		logger:      log,
	}
}

// Issue mints a credential on the ledger and mirrors it into the index
func (s *Service) Issue(ctx context.Context, req *IssueRequest) (*types.Credential, error) {
	if req.Holder == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidHolder, "holder identity is required")
	}
	if !types.CredentialType(req.CredentialType).IsKnown() {
		return nil, types.NewValidationError(types.ErrCodeInvalidCredentialType, fmt.Sprintf("unknown credential type: %s", req.CredentialType))
	}

	payload, err := s.invoker.Submit(ctx, s.chaincode, "IssueCredential",
		req.Holder,
		req.CredentialType,
		req.LicenseHash,
		req.Specialty,
		req.MetadataPointer,
		strconv.Itoa(req.ValidityYears),
	)
	if err != nil {
		return nil, err
	}

	var credential types.Credential
	if err := json.Unmarshal(payload, &credential); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode credential payload", err)
	}

	if err := s.credentials.Upsert(ctx, &credential); err != nil {
		// The ledger write succeeded; a stale index is repairable.
		s.logger.WithFields(map[string]interface{}{
			"token_id": credential.TokenID,
			"error":    err.Error(),
		}).Warn("Failed to mirror credential into index")
	}

	s.logger.Audit(fabric.CallerFromContext(ctx), "issue_credential", fmt.Sprintf("credential/%d", credential.TokenID), true, map[string]interface{}{
		"holder": credential.Holder,
		"type":   credential.CredentialType,
	})
	return &credential, nil
}

// Revoke revokes a credential on the ledger and updates the index
func (s *Service) Revoke(ctx context.Context, tokenID uint64) error {
	_, err := s.invoker.Submit(ctx, s.chaincode, "RevokeCredential", strconv.FormatUint(tokenID, 10))
	if err != nil {
		return err
	}

	if err := s.credentials.MarkRevoked(ctx, tokenID); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"token_id": tokenID,
			"error":    err.Error(),
		}).Warn("Failed to mark credential revoked in index")
	}

	s.logger.Audit(fabric.CallerFromContext(ctx), "revoke_credential", fmt.Sprintf("credential/%d", tokenID), true, nil)
	return nil
}

// Get retrieves a credential from the ledger
func (s *Service) Get(ctx context.Context, tokenID uint64) (*types.Credential, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetCredential", strconv.FormatUint(tokenID, 10))
	if err != nil {
		return nil, err
	}

	var credential types.Credential
	if err := json.Unmarshal(payload, &credential); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode credential payload", err)
	}
	return &credential, nil
}

// GetByHolder resolves a holder identity to its live credential
func (s *Service) GetByHolder(ctx context.Context, holder string) (*types.Credential, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetCredentialByHolder", holder)
	if err != nil {
		return nil, err
	}

	var credential types.Credential
	if err := json.Unmarshal(payload, &credential); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode credential payload", err)
	}
	return &credential, nil
}

// IsValid reports whether a credential currently authorizes its holder
func (s *Service) IsValid(ctx context.Context, tokenID uint64) (bool, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "IsValid", strconv.FormatUint(tokenID, 10))
	if err != nil {
		return false, err
	}

	valid, err := strconv.ParseBool(string(payload))
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeInternalError, "failed to decode validity payload", err)
	}
	return valid, nil
}

// SetAdmin rotates the contract authorizer set to a single identity
func (s *Service) SetAdmin(ctx context.Context, identity string) error {
	_, err := s.invoker.Submit(ctx, s.chaincode, "SetAdmin", identity)
	return err
}
