package prescriptionregistry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/rxledger/dlt-rx/pkg/types"
)

// Ledger key layout. Prescriptions live under rx_<id>; the index keys hold
// JSON arrays of prescription IDs so history queries avoid range scans.
const (
	adminConfigKey     = "admin_config"
	counterKey         = "rx_counter"
	prescriptionKey    = "rx_%d"
	patientIndexKey    = "rxpatient_%s"
	doctorIndexKey     = "rxdoctor_%d"
	pharmacistIndexKey = "rxpharm_%d"

	defaultCredentialChaincode = "credential-sbt"
)

// credentialLookupFn is the function invoked on the credential chaincode to
// resolve a caller identity to its live credential.
const credentialLookupFn = "GetCredentialByHolder"

// SmartContract is the prescription registry. Every mutating call is
// authorized against the credential chaincode: doctors create and cancel,
// pharmacists dispense. Prescription contents stay off-ledger; only their
// hashes and the IPFS pointer are recorded.
type SmartContract struct {
	contractapi.Contract

	// CredentialChaincode is the name of the deployed credential registry
	// on the same channel.
	CredentialChaincode string
}

// NewSmartContract returns a registry wired to the default credential
// chaincode name.
func NewSmartContract() *SmartContract {
	return &SmartContract{CredentialChaincode: defaultCredentialChaincode}
}

// PrescriptionWithProof bundles a prescription with the material a verifier
// needs to check the record against off-ledger data: the hash of the stored
// record and the transaction ID of the reading query.
type PrescriptionWithProof struct {
	Prescription *types.Prescription `json:"prescription"`
	RecordHash   string              `json:"recordHash"`
	TxID         string              `json:"txId"`
}

// InitLedger bootstraps the authorizer set with the deploying identity.
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

// CreatePrescription records a new prescription. The caller must hold a
// valid doctor credential. The prescription payload itself never touches
// the ledger; patientDataHash and prescriptionDataHash commit to it and
// ipfsCid points at the encrypted copy. secretCommitment is the SHA-256 of
// the patient secret that will be presented at dispensation.
func (s *SmartContract) CreatePrescription(ctx contractapi.TransactionContextInterface, patientDataHash, prescriptionDataHash, ipfsCid string, validityDays int, secretCommitment string) (*types.Prescription, error) {
	doctor, err := s.requireRole(ctx, types.CredentialDoctor)
	if err != nil {
		return nil, err
	}

	if patientDataHash == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidPatientHash, "patient data hash is required")
	}
	if prescriptionDataHash == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidPrescriptionHash, "prescription data hash is required")
	}
	if ipfsCid == "" {
		return nil, types.NewValidationError(types.ErrCodeMissingCid, "metadata CID is required")
	}
	if validityDays < types.MinValidityDays || validityDays > types.MaxValidityDays {
		return nil, types.NewValidationError(types.ErrCodeInvalidValidityPeriod, fmt.Sprintf("validity days must be between %d and %d, got %d", types.MinValidityDays, types.MaxValidityDays, validityDays))
	}
	if !isHexDigest(secretCommitment) {
		return nil, types.NewValidationError(types.ErrCodeInvalidSecret, "secret commitment must be a hex-encoded SHA-256 digest")
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}

	prescriptionID, err := s.nextPrescriptionID(ctx)
	if err != nil {
		return nil, err
	}

	prescription := types.Prescription{
		PrescriptionID:       prescriptionID,
		DoctorTokenID:        doctor.TokenID,
		PatientDataHash:      patientDataHash,
		PrescriptionDataHash: prescriptionDataHash,
		IpfsCid:              ipfsCid,
		Status:               types.PrescriptionActive,
		IssuedAt:             now,
		ExpiresAt:            now.AddDate(0, 0, validityDays),
		SecretCommitment:     strings.ToLower(secretCommitment),
	}

	if err := s.putPrescription(ctx, &prescription); err != nil {
		return nil, err
	}

	if err := s.appendIndex(ctx, fmt.Sprintf(patientIndexKey, patientDataHash), prescriptionID); err != nil {
		return nil, err
	}
	if err := s.appendIndex(ctx, fmt.Sprintf(doctorIndexKey, doctor.TokenID), prescriptionID); err != nil {
		return nil, err
	}

	event := types.PrescriptionCreatedEvent{
		PrescriptionID:       prescription.PrescriptionID,
		DoctorTokenID:        prescription.DoctorTokenID,
		PatientDataHash:      prescription.PatientDataHash,
		PrescriptionDataHash: prescription.PrescriptionDataHash,
		IpfsCid:              prescription.IpfsCid,
		IssuedAt:             prescription.IssuedAt,
		ExpiresAt:            prescription.ExpiresAt,
	}
	if err := s.emitEvent(ctx, types.EventPrescriptionCreated, event); err != nil {
		return nil, err
	}

	return &prescription, nil
}

// DispensePrescription marks a prescription dispensed. The caller must hold
// a valid pharmacist credential and must re-present the patient and
// prescription hashes exactly as recorded; a mismatch is treated as a
// tampering signal, not a plain validation failure.
func (s *SmartContract) DispensePrescription(ctx contractapi.TransactionContextInterface, prescriptionID uint64, patientDataHash, prescriptionDataHash string) (*types.Prescription, error) {
	pharmacist, err := s.requireRole(ctx, types.CredentialPharmacist)
	if err != nil {
		return nil, err
	}

	prescription, err := s.readPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}

	if prescription.Status != types.PrescriptionActive {
		return nil, types.NewStateConflictError(types.ErrCodePrescriptionNotActive, fmt.Sprintf("prescription %d is %s", prescriptionID, prescription.Status))
	}
	if prescription.IsExpired(now) {
		return nil, types.NewStateConflictError(types.ErrCodePrescriptionExpired, fmt.Sprintf("prescription %d expired at %s", prescriptionID, prescription.ExpiresAt.Format(time.RFC3339)))
	}

	if patientDataHash != prescription.PatientDataHash {
		return nil, types.NewIntegrityError(types.ErrCodePatientDataMismatch, fmt.Sprintf("patient data hash does not match prescription %d", prescriptionID), map[string]interface{}{
			"prescriptionId": prescriptionID,
			"presentedHash":  patientDataHash,
		})
	}
	if prescriptionDataHash != prescription.PrescriptionDataHash {
		return nil, types.NewIntegrityError(types.ErrCodePrescriptionDataMismatch, fmt.Sprintf("prescription data hash does not match prescription %d", prescriptionID), map[string]interface{}{
			"prescriptionId": prescriptionID,
			"presentedHash":  prescriptionDataHash,
		})
	}

	prescription.Status = types.PrescriptionDispensed
	prescription.PharmacistTokenID = pharmacist.TokenID
	prescription.DispensedAt = &now

	if err := s.putPrescription(ctx, prescription); err != nil {
		return nil, err
	}
	if err := s.appendIndex(ctx, fmt.Sprintf(pharmacistIndexKey, pharmacist.TokenID), prescriptionID); err != nil {
		return nil, err
	}

	event := types.PrescriptionDispensedEvent{
		PrescriptionID:    prescription.PrescriptionID,
		PharmacistTokenID: pharmacist.TokenID,
		DispensedAt:       now,
	}
	if err := s.emitEvent(ctx, types.EventPrescriptionDispensed, event); err != nil {
		return nil, err
	}

	return prescription, nil
}

// CancelPrescription voids an active prescription. Only the doctor who
// issued it may cancel, and only while it is still active and unexpired.
func (s *SmartContract) CancelPrescription(ctx contractapi.TransactionContextInterface, prescriptionID uint64, reason string) (*types.Prescription, error) {
	doctor, err := s.requireRole(ctx, types.CredentialDoctor)
	if err != nil {
		return nil, err
	}

	prescription, err := s.readPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	if prescription.DoctorTokenID != doctor.TokenID {
		return nil, types.NewAuthorizationError(types.ErrCodeNotIssuingDoctor, fmt.Sprintf("caller did not issue prescription %d", prescriptionID))
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}

	if prescription.Status != types.PrescriptionActive {
		return nil, types.NewStateConflictError(types.ErrCodePrescriptionNotActive, fmt.Sprintf("prescription %d is %s", prescriptionID, prescription.Status))
	}
	if prescription.IsExpired(now) {
		return nil, types.NewStateConflictError(types.ErrCodePrescriptionExpired, fmt.Sprintf("prescription %d expired at %s", prescriptionID, prescription.ExpiresAt.Format(time.RFC3339)))
	}

	prescription.Status = types.PrescriptionCancelled
	prescription.CancellationReason = reason

	if err := s.putPrescription(ctx, prescription); err != nil {
		return nil, err
	}

	event := types.PrescriptionCancelledEvent{
		PrescriptionID: prescription.PrescriptionID,
		DoctorTokenID:  doctor.TokenID,
		Reason:         reason,
		CancelledAt:    now,
	}
	if err := s.emitEvent(ctx, types.EventPrescriptionCancelled, event); err != nil {
		return nil, err
	}

	return prescription, nil
}

// GetPrescription returns a prescription record. The status field reflects
// the stored state; use EffectiveStatus or IsPrescriptionDispensable for a
// time-aware view.
func (s *SmartContract) GetPrescription(ctx contractapi.TransactionContextInterface, prescriptionID uint64) (*types.Prescription, error) {
	return s.readPrescription(ctx, prescriptionID)
}

// IsPrescriptionDispensable runs every dispense-time check without
// mutating: status, expiry and the hash tamper comparison. Clients use it
// to pre-validate before submitting the mutating call. Expiry is evaluated
// against the transaction timestamp; nothing is ever written.
func (s *SmartContract) IsPrescriptionDispensable(ctx contractapi.TransactionContextInterface, prescriptionID uint64, patientDataHash, prescriptionDataHash string) (*types.DispenseCheck, error) {
	prescription, err := s.readPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}

	if prescription.Status != types.PrescriptionActive {
		return &types.DispenseCheck{Reason: types.ErrCodePrescriptionNotActive}, nil
	}
	if prescription.IsExpired(now) {
		return &types.DispenseCheck{Reason: types.ErrCodePrescriptionExpired}, nil
	}
	if patientDataHash != prescription.PatientDataHash {
		return &types.DispenseCheck{Reason: types.ErrCodePatientDataMismatch}, nil
	}
	if prescriptionDataHash != prescription.PrescriptionDataHash {
		return &types.DispenseCheck{Reason: types.ErrCodePrescriptionDataMismatch}, nil
	}
	return &types.DispenseCheck{Dispensable: true}, nil
}

// GetPrescriptionWithProof is the walletless patient read: the caller needs
// no credential, only the patient secret handed out at creation (typically
// QR-encoded). The secret must hash to the stored commitment. The response
// includes the SHA-256 of the stored record so an off-chain verifier can
// compare the ledger state against its own copy.
func (s *SmartContract) GetPrescriptionWithProof(ctx contractapi.TransactionContextInterface, prescriptionID uint64, patientSecret string) (*PrescriptionWithProof, error) {
	raw, err := ctx.GetStub().GetState(fmt.Sprintf(prescriptionKey, prescriptionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read prescription from world state: %v", err)
	}
	if raw == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("prescription %d does not exist", prescriptionID))
	}

	var prescription types.Prescription
	if err := json.Unmarshal(raw, &prescription); err != nil {
		return nil, err
	}

	if hashSecret(patientSecret) != prescription.SecretCommitment {
		return nil, types.NewAuthorizationError(types.ErrCodeInvalidSecret, fmt.Sprintf("patient secret does not match commitment for prescription %d", prescriptionID))
	}

	digest := sha256.Sum256(raw)
	return &PrescriptionWithProof{
		Prescription: &prescription,
		RecordHash:   hex.EncodeToString(digest[:]),
		TxID:         ctx.GetStub().GetTxID(),
	}, nil
}

// GetPatientPrescriptionHistory returns every prescription recorded against
// a patient data hash, oldest first. Restricted to credentialed doctors and
// pharmacists; the raw list enables client-side abuse detection, so the
// registry returns it only to practitioners, never computing a verdict
// itself.
func (s *SmartContract) GetPatientPrescriptionHistory(ctx contractapi.TransactionContextInterface, patientDataHash string) ([]*types.Prescription, error) {
	if _, err := s.requireCredentialed(ctx); err != nil {
		return nil, err
	}
	if patientDataHash == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidPatientHash, "patient data hash is required")
	}
	return s.readIndexed(ctx, fmt.Sprintf(patientIndexKey, patientDataHash))
}

// GetDoctorPrescriptions returns all prescriptions issued by a doctor.
// Admin-only: cross-doctor visibility is an oversight function.
func (s *SmartContract) GetDoctorPrescriptions(ctx contractapi.TransactionContextInterface, doctorTokenID uint64) ([]*types.Prescription, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.readIndexed(ctx, fmt.Sprintf(doctorIndexKey, doctorTokenID))
}

// GetPharmacistDispensals returns all prescriptions dispensed by a
// pharmacist. Admin-only.
func (s *SmartContract) GetPharmacistDispensals(ctx contractapi.TransactionContextInterface, pharmacistTokenID uint64) ([]*types.Prescription, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.readIndexed(ctx, fmt.Sprintf(pharmacistIndexKey, pharmacistTokenID))
}

// GetMyPrescriptions returns the prescriptions issued by the calling
// doctor, resolved through the caller's own credential.
func (s *SmartContract) GetMyPrescriptions(ctx contractapi.TransactionContextInterface) ([]*types.Prescription, error) {
	doctor, err := s.requireRole(ctx, types.CredentialDoctor)
	if err != nil {
		return nil, err
	}
	return s.readIndexed(ctx, fmt.Sprintf(doctorIndexKey, doctor.TokenID))
}

// GetMyDispensals returns the prescriptions dispensed by the calling
// pharmacist.
func (s *SmartContract) GetMyDispensals(ctx contractapi.TransactionContextInterface) ([]*types.Prescription, error) {
	pharmacist, err := s.requireRole(ctx, types.CredentialPharmacist)
	if err != nil {
		return nil, err
	}
	return s.readIndexed(ctx, fmt.Sprintf(pharmacistIndexKey, pharmacist.TokenID))
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

// AddAuthorizer adds an identity to the authorizer set. Admin-only.
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

// Credential resolution

// requireRole resolves the caller to a credential via the credential
// chaincode and checks role and validity. Failure order is fixed: no
// credential, wrong role, then invalid (revoked or expired) credential.
func (s *SmartContract) requireRole(ctx contractapi.TransactionContextInterface, role types.CredentialType) (*types.Credential, error) {
	callerID, err := s.callerIdentity(ctx)
	if err != nil {
		return nil, err
	}

	credential, err := s.resolveCredential(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if credential.CredentialType != role {
		return nil, types.NewAuthorizationError(types.ErrCodeWrongRole, fmt.Sprintf("caller holds a %s credential, %s required", credential.CredentialType, role))
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}
	if !credential.IsValid(now) {
		return nil, types.NewAuthorizationError(types.ErrCodeCredentialInvalid, fmt.Sprintf("credential %d is revoked or expired", credential.TokenID))
	}

	return credential, nil
}

// requireCredentialed resolves the caller to any valid credential,
// regardless of role.
func (s *SmartContract) requireCredentialed(ctx contractapi.TransactionContextInterface) (*types.Credential, error) {
	callerID, err := s.callerIdentity(ctx)
	if err != nil {
		return nil, err
	}

	credential, err := s.resolveCredential(ctx, callerID)
	if err != nil {
		return nil, err
	}

	now, err := s.txTime(ctx)
	if err != nil {
		return nil, err
	}
	if !credential.IsValid(now) {
		return nil, types.NewAuthorizationError(types.ErrCodeCredentialInvalid, fmt.Sprintf("credential %d is revoked or expired", credential.TokenID))
	}

	return credential, nil
}

func (s *SmartContract) resolveCredential(ctx contractapi.TransactionContextInterface, holder string) (*types.Credential, error) {
	ccName := s.CredentialChaincode
	if ccName == "" {
		ccName = defaultCredentialChaincode
	}

	args := [][]byte{[]byte(credentialLookupFn), []byte(holder)}
	response := ctx.GetStub().InvokeChaincode(ccName, args, "")
	if response.Status != shim.OK {
		return nil, types.NewAuthorizationError(types.ErrCodeNoCredentialFound, fmt.Sprintf("no live credential for caller: %s", response.Message))
	}

	var credential types.Credential
	if err := json.Unmarshal(response.Payload, &credential); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode credential payload", err)
	}
	return &credential, nil
}

// Helper functions

func (s *SmartContract) readPrescription(ctx contractapi.TransactionContextInterface, prescriptionID uint64) (*types.Prescription, error) {
	raw, err := ctx.GetStub().GetState(fmt.Sprintf(prescriptionKey, prescriptionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read prescription from world state: %v", err)
	}
	if raw == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("prescription %d does not exist", prescriptionID))
	}

	var prescription types.Prescription
	if err := json.Unmarshal(raw, &prescription); err != nil {
		return nil, err
	}
	return &prescription, nil
}

func (s *SmartContract) putPrescription(ctx contractapi.TransactionContextInterface, prescription *types.Prescription) error {
	prescriptionJSON, err := json.Marshal(prescription)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(fmt.Sprintf(prescriptionKey, prescription.PrescriptionID), prescriptionJSON); err != nil {
		return fmt.Errorf("failed to store prescription: %v", err)
	}
	return nil
}

func (s *SmartContract) nextPrescriptionID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	raw, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read prescription counter: %v", err)
	}

	var last uint64
	if raw != nil {
		last, err = strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt prescription counter: %v", err)
		}
	}

	next := last + 1
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to store prescription counter: %v", err)
	}
	return next, nil
}

func (s *SmartContract) appendIndex(ctx contractapi.TransactionContextInterface, key string, prescriptionID uint64) error {
	ids, err := s.readIndex(ctx, key)
	if err != nil {
		return err
	}

	ids = append(ids, prescriptionID)
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(key, idsJSON); err != nil {
		return fmt.Errorf("failed to store index %s: %v", key, err)
	}
	return nil
}

func (s *SmartContract) readIndex(ctx contractapi.TransactionContextInterface, key string) ([]uint64, error) {
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %v", key, err)
	}
	if raw == nil {
		return nil, nil
	}

	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("corrupt index %s: %v", key, err)
	}
	return ids, nil
}

func (s *SmartContract) readIndexed(ctx contractapi.TransactionContextInterface, key string) ([]*types.Prescription, error) {
	ids, err := s.readIndex(ctx, key)
	if err != nil {
		return nil, err
	}

	prescriptions := make([]*types.Prescription, 0, len(ids))
	for _, id := range ids {
		prescription, err := s.readPrescription(ctx, id)
		if err != nil {
			return nil, err
		}
		prescriptions = append(prescriptions, prescription)
	}
	return prescriptions, nil
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

// txTime returns the transaction timestamp. Expiry is always evaluated
// against this value so all endorsers agree on the outcome.
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

// hashSecret computes the commitment for a patient secret.
func hashSecret(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// isHexDigest reports whether s is a 64-character hex string.
func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
