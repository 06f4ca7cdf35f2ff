package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/fabric"
	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/metadata"
	"github.com/rxledger/dlt-rx/pkg/monitoring"
	"github.com/rxledger/dlt-rx/pkg/repository"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// CreateRequest carries the parameters for creating a prescription. The
// payload is the already-encrypted prescription document; the service
// stores it off-chain and records only its CID on the ledger.
type CreateRequest struct {
	PatientDataHash      string `json:"patient_data_hash"`
	PrescriptionDataHash string `json:"prescription_data_hash"`
	Payload              []byte `json:"payload,omitempty"`
	IpfsCid              string `json:"ipfs_cid,omitempty"`
	ValidityDays         int    `json:"validity_days"`
	SecretCommitment     string `json:"secret_commitment"`
}

// DispenseRequest carries the parameters for dispensing a prescription.
// The hashes must match the values recorded at creation; the pharmacist
// recomputes them from the metadata they fetched, so a mismatch means the
// off-chain copy was altered.
type DispenseRequest struct {
	PatientDataHash      string `json:"patient_data_hash"`
	PrescriptionDataHash string `json:"prescription_data_hash"`
}

// PrescriptionWithProof mirrors the chaincode proof read result
type PrescriptionWithProof struct {
	Prescription *types.Prescription `json:"prescription"`
	RecordHash   string              `json:"recordHash"`
	TxID         string              `json:"txId"`
}

// Service orchestrates the prescription registry: metadata storage, ledger
// transactions and the off-chain index. The ledger remains the sole
// authority; everything else here is a mirror or a side channel.
type Service struct {
	invoker       fabric.Invoker
	metadata      metadata.Store
	prescriptions repository.PrescriptionIndexRepositoryInterface
	alerts        repository.TamperAlertRepositoryInterface
	chaincode     string
	logger        *logger.Logger
}

// NewService creates a new registry service
func NewService(invoker fabric.Invoker, store metadata.Store, prescriptions repository.PrescriptionIndexRepositoryInterface, alerts repository.TamperAlertRepositoryInterface, cfg *config.FabricConfig, log *logger.Logger) *Service {
	return &Service{
		invoker:       invoker,
		metadata:      store,
		prescriptions: prescriptions,
		alerts:        alerts,
		chaincode:     cfg.PrescriptionCC,
		logger:        log,
	}
}

// Create stores the encrypted payload, records the prescription on the
// ledger and mirrors the result into the index
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*types.Prescription, error) {
	ipfsCid := req.IpfsCid
	if len(req.Payload) > 0 {
		cid, err := s.metadata.Put(ctx, req.Payload)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to store prescription payload", err)
		}
		ipfsCid = cid
	}
	if ipfsCid == "" {
		return nil, types.NewValidationError(types.ErrCodeMissingCid, "either a payload or a metadata CID is required")
	}

	payload, err := s.invoker.Submit(ctx, s.chaincode, "CreatePrescription",
		req.PatientDataHash,
		req.PrescriptionDataHash,
		ipfsCid,
		strconv.Itoa(req.ValidityDays),
		req.SecretCommitment,
	)
	if err != nil {
		return nil, err
	}

	prescription, err := decodePrescription(payload)
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, prescription)
	monitoring.RecordPrescriptionCreated()

	s.logger.Audit(fabric.CallerFromContext(ctx), "create_prescription", fmt.Sprintf("prescription/%d", prescription.PrescriptionID), true, map[string]interface{}{
		"ipfs_cid":   prescription.IpfsCid,
		"expires_at": prescription.ExpiresAt,
	})
	return prescription, nil
}

// Dispense marks a prescription dispensed. Hash-mismatch rejections are
// recorded as tamper alerts before the error is returned.
func (s *Service) Dispense(ctx context.Context, prescriptionID uint64, req *DispenseRequest) (*types.Prescription, error) {
	payload, err := s.invoker.Submit(ctx, s.chaincode, "DispensePrescription",
		strconv.FormatUint(prescriptionID, 10),
		req.PatientDataHash,
		req.PrescriptionDataHash,
	)
	if err != nil {
		if code := mismatchCode(err); code != "" {
			s.recordTamperAlert(ctx, prescriptionID, code, req)
		}
		return nil, err
	}

	prescription, err := decodePrescription(payload)
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, prescription)
	monitoring.RecordPrescriptionDispensed()

	s.logger.Audit(fabric.CallerFromContext(ctx), "dispense_prescription", fmt.Sprintf("prescription/%d", prescriptionID), true, nil)
	return prescription, nil
}

// Cancel voids an active prescription
func (s *Service) Cancel(ctx context.Context, prescriptionID uint64, reason string) (*types.Prescription, error) {
	payload, err := s.invoker.Submit(ctx, s.chaincode, "CancelPrescription",
		strconv.FormatUint(prescriptionID, 10),
		reason,
	)
	if err != nil {
		return nil, err
	}

	prescription, err := decodePrescription(payload)
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, prescription)
	monitoring.RecordPrescriptionCancelled()

	s.logger.Audit(fabric.CallerFromContext(ctx), "cancel_prescription", fmt.Sprintf("prescription/%d", prescriptionID), true, map[string]interface{}{
		"reason": reason,
	})
	return prescription, nil
}

// Get retrieves a prescription from the ledger
func (s *Service) Get(ctx context.Context, prescriptionID uint64) (*types.Prescription, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetPrescription", strconv.FormatUint(prescriptionID, 10))
	if err != nil {
		return nil, err
	}
	return decodePrescription(payload)
}

// GetWithProof is the walletless patient read: no credential, only the
// patient secret handed out at creation. The chaincode verifies the secret
// against the stored commitment.
func (s *Service) GetWithProof(ctx context.Context, prescriptionID uint64, patientSecret string) (*PrescriptionWithProof, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetPrescriptionWithProof",
		strconv.FormatUint(prescriptionID, 10), patientSecret)
	if err != nil {
		return nil, err
	}

	var proof PrescriptionWithProof
	if err := json.Unmarshal(payload, &proof); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode proof payload", err)
	}
	return &proof, nil
}

// IsDispensable runs every dispense-time check, hash comparison included,
// without submitting a transaction
func (s *Service) IsDispensable(ctx context.Context, prescriptionID uint64, patientDataHash, prescriptionDataHash string) (*types.DispenseCheck, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "IsPrescriptionDispensable",
		strconv.FormatUint(prescriptionID, 10), patientDataHash, prescriptionDataHash)
	if err != nil {
		return nil, err
	}

	var check types.DispenseCheck
	if err := json.Unmarshal(payload, &check); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode dispensability payload", err)
	}
	return &check, nil
}

// PatientHistory retrieves all prescriptions for a patient data hash from
// the ledger
func (s *Service) PatientHistory(ctx context.Context, patientDataHash string) ([]*types.Prescription, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetPatientPrescriptionHistory", patientDataHash)
	if err != nil {
		return nil, err
	}

	var prescriptions []*types.Prescription
	if err := json.Unmarshal(payload, &prescriptions); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode history payload", err)
	}
	return prescriptions, nil
}

// DoctorPrescriptions lists prescriptions issued by a doctor from the
// off-chain index. Route access is restricted to admins.
func (s *Service) DoctorPrescriptions(ctx context.Context, doctorTokenID uint64) ([]*types.Prescription, error) {
	return s.prescriptions.GetByDoctor(ctx, doctorTokenID)
}

// PharmacistDispensals lists prescriptions dispensed by a pharmacist from
// the off-chain index. Route access is restricted to admins.
func (s *Service) PharmacistDispensals(ctx context.Context, pharmacistTokenID uint64) ([]*types.Prescription, error) {
	return s.prescriptions.GetByPharmacist(ctx, pharmacistTokenID)
}

// MyPrescriptions lists the calling doctor's own prescriptions
func (s *Service) MyPrescriptions(ctx context.Context) ([]*types.Prescription, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetMyPrescriptions")
	if err != nil {
		return nil, err
	}

	var prescriptions []*types.Prescription
	if err := json.Unmarshal(payload, &prescriptions); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode prescriptions payload", err)
	}
	return prescriptions, nil
}

// MyDispensals lists the calling pharmacist's own dispensals
func (s *Service) MyDispensals(ctx context.Context) ([]*types.Prescription, error) {
	payload, err := s.invoker.Evaluate(ctx, s.chaincode, "GetMyDispensals")
	if err != nil {
		return nil, err
	}

	var prescriptions []*types.Prescription
	if err := json.Unmarshal(payload, &prescriptions); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode dispensals payload", err)
	}
	return prescriptions, nil
}

// TamperAlerts lists recorded hash-mismatch rejections for a prescription
func (s *Service) TamperAlerts(ctx context.Context, prescriptionID uint64) ([]*types.TamperAlert, error) {
	return s.alerts.GetByPrescription(ctx, prescriptionID)
}

// Metadata retrieves the off-chain payload for a CID
func (s *Service) Metadata(ctx context.Context, cid string) ([]byte, error) {
	return s.metadata.Get(ctx, cid)
}

// mirror upserts a prescription into the off-chain index. Index failures
// are logged, not returned: the ledger write already committed.
func (s *Service) mirror(ctx context.Context, prescription *types.Prescription) {
	if err := s.prescriptions.Upsert(ctx, prescription); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"prescription_id": prescription.PrescriptionID,
			"error":           err.Error(),
		}).Warn("Failed to mirror prescription into index")
	}
}

func (s *Service) recordTamperAlert(ctx context.Context, prescriptionID uint64, code string, req *DispenseRequest) {
	caller := fabric.CallerFromContext(ctx)

	presented := req.PatientDataHash
	if code == types.ErrCodePrescriptionDataMismatch {
		presented = req.PrescriptionDataHash
	}

	s.logger.TamperAlert(caller, prescriptionID, code, map[string]interface{}{
		"presented_hash": presented,
	})
	monitoring.RecordTamperAlert(code)

	alert := &types.TamperAlert{
		PrescriptionID: prescriptionID,
		Caller:         caller,
		Code:           code,
		PresentedHash:  presented,
	}
	if err := s.alerts.Record(ctx, alert); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"prescription_id": prescriptionID,
			"error":           err.Error(),
		}).Error("Failed to persist tamper alert")
	}
}

func decodePrescription(payload []byte) (*types.Prescription, error) {
	var prescription types.Prescription
	if err := json.Unmarshal(payload, &prescription); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to decode prescription payload", err)
	}
	return &prescription, nil
}

// mismatchCode extracts the hash-mismatch code from a dispense error, or
// returns empty when the failure is not a tamper signal. Errors arriving
// over the gateway carry the code in the message rather than as a typed
// error.
func mismatchCode(err error) string {
	var regErr *types.RegistryError
	if errors.As(err, &regErr) {
		if regErr.IsTamperSignal() {
			return regErr.Code
		}
		return ""
	}

	for _, code := range []string{types.ErrCodePatientDataMismatch, types.ErrCodePrescriptionDataMismatch} {
		if strings.Contains(err.Error(), code) {
			return code
		}
	}
	return ""
}
