package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

const prescriptionColumns = `prescription_id, doctor_token_id, patient_data_hash,
	prescription_data_hash, ipfs_cid, status, issued_at, expires_at,
	pharmacist_token_id, dispensed_at, cancellation_reason`

// PrescriptionIndexRepository mirrors prescription records into PostgreSQL.
// The secret commitment is deliberately not mirrored; it only ever matters
// on the ledger.
type PrescriptionIndexRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPrescriptionIndexRepository creates a new prescription index repository
func NewPrescriptionIndexRepository(db *sql.DB, log *logger.Logger) *PrescriptionIndexRepository {
	return &PrescriptionIndexRepository{
		db:     db,
		logger: log,
	}
}

// Upsert writes a prescription row, replacing the mutable lifecycle fields
// on conflict
func (r *PrescriptionIndexRepository) Upsert(ctx context.Context, prescription *types.Prescription) error {
	query := `
		INSERT INTO prescription_index (
			prescription_id, doctor_token_id, patient_data_hash,
			prescription_data_hash, ipfs_cid, status, issued_at, expires_at,
			pharmacist_token_id, dispensed_at, cancellation_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (prescription_id) DO UPDATE SET
			status = EXCLUDED.status,
			pharmacist_token_id = EXCLUDED.pharmacist_token_id,
			dispensed_at = EXCLUDED.dispensed_at,
			cancellation_reason = EXCLUDED.cancellation_reason`

	var pharmacistTokenID interface{}
	if prescription.PharmacistTokenID != 0 {
		pharmacistTokenID = prescription.PharmacistTokenID
	}

	_, err := r.db.ExecContext(ctx, query,
		prescription.PrescriptionID,
		prescription.DoctorTokenID,
		prescription.PatientDataHash,
		prescription.PrescriptionDataHash,
		prescription.IpfsCid,
		string(prescription.Status),
		prescription.IssuedAt,
		prescription.ExpiresAt,
		pharmacistTokenID,
		prescription.DispensedAt,
		prescription.CancellationReason,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prescription index row: %w", err)
	}

	return nil
}

// GetByID retrieves a prescription row by ID
func (r *PrescriptionIndexRepository) GetByID(ctx context.Context, prescriptionID uint64) (*types.Prescription, error) {
	query := fmt.Sprintf(`SELECT %s FROM prescription_index WHERE prescription_id = $1`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescription index: %w", err)
	}
	defer rows.Close()

	prescriptions, err := r.scanPrescriptions(rows)
	if err != nil {
		return nil, err
	}
	if len(prescriptions) == 0 {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("prescription %d not in index", prescriptionID))
	}
	return prescriptions[0], nil
}

// GetByPatientHash retrieves all prescriptions for a patient data hash,
// oldest first
func (r *PrescriptionIndexRepository) GetByPatientHash(ctx context.Context, patientDataHash string) ([]*types.Prescription, error) {
	query := fmt.Sprintf(`SELECT %s FROM prescription_index WHERE patient_data_hash = $1 ORDER BY prescription_id`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, patientDataHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescription index: %w", err)
	}
	defer rows.Close()

	return r.scanPrescriptions(rows)
}

// GetByDoctor retrieves all prescriptions issued by a doctor
func (r *PrescriptionIndexRepository) GetByDoctor(ctx context.Context, doctorTokenID uint64) ([]*types.Prescription, error) {
	query := fmt.Sprintf(`SELECT %s FROM prescription_index WHERE doctor_token_id = $1 ORDER BY prescription_id`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, doctorTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescription index: %w", err)
	}
	defer rows.Close()

	return r.scanPrescriptions(rows)
}

// GetByPharmacist retrieves all prescriptions dispensed by a pharmacist
func (r *PrescriptionIndexRepository) GetByPharmacist(ctx context.Context, pharmacistTokenID uint64) ([]*types.Prescription, error) {
	query := fmt.Sprintf(`SELECT %s FROM prescription_index WHERE pharmacist_token_id = $1 ORDER BY prescription_id`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, pharmacistTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescription index: %w", err)
	}
	defer rows.Close()

	return r.scanPrescriptions(rows)
}

func (r *PrescriptionIndexRepository) scanPrescriptions(rows *sql.Rows) ([]*types.Prescription, error) {
	var prescriptions []*types.Prescription

	for rows.Next() {
		var prescription types.Prescription
		var status string
		var pharmacistTokenID sql.NullInt64
		var dispensedAt sql.NullTime
		var cancellationReason sql.NullString

		err := rows.Scan(
			&prescription.PrescriptionID,
			&prescription.DoctorTokenID,
			&prescription.PatientDataHash,
			&prescription.PrescriptionDataHash,
			&prescription.IpfsCid,
			&status,
			&prescription.IssuedAt,
			&prescription.ExpiresAt,
			&pharmacistTokenID,
			&dispensedAt,
			&cancellationReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription index row: %w", err)
		}

		prescription.Status = types.PrescriptionStatus(status)
		if pharmacistTokenID.Valid {
			prescription.PharmacistTokenID = uint64(pharmacistTokenID.Int64)
		}
		if dispensedAt.Valid {
			prescription.DispensedAt = &dispensedAt.Time
		}
		if cancellationReason.Valid {
			prescription.CancellationReason = cancellationReason.String
		}

		prescriptions = append(prescriptions, &prescription)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prescription index rows: %w", err)
	}
	return prescriptions, nil
}
