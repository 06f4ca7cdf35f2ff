package repository

import (
	"context"

	"github.com/rxledger/dlt-rx/pkg/types"
)

// CredentialIndexRepositoryInterface defines the interface for the
// credential mirror. Rows are upserted from ledger events.
type CredentialIndexRepositoryInterface interface {
	Upsert(ctx context.Context, credential *types.Credential) error
	GetByTokenID(ctx context.Context, tokenID uint64) (*types.Credential, error)
	GetByHolder(ctx context.Context, holder string) (*types.Credential, error)
	MarkRevoked(ctx context.Context, tokenID uint64) error
}

// PrescriptionIndexRepositoryInterface defines the interface for the
// prescription mirror used by history and oversight queries.
type PrescriptionIndexRepositoryInterface interface {
	Upsert(ctx context.Context, prescription *types.Prescription) error
	GetByID(ctx context.Context, prescriptionID uint64) (*types.Prescription, error)
	GetByPatientHash(ctx context.Context, patientDataHash string) ([]*types.Prescription, error)
	GetByDoctor(ctx context.Context, doctorTokenID uint64) ([]*types.Prescription, error)
	GetByPharmacist(ctx context.Context, pharmacistTokenID uint64) ([]*types.Prescription, error)
}

// TamperAlertRepositoryInterface defines the interface for recording
// hash-mismatch rejections for security review.
type TamperAlertRepositoryInterface interface {
	Record(ctx context.Context, alert *types.TamperAlert) error
	GetByPrescription(ctx context.Context, prescriptionID uint64) ([]*types.TamperAlert, error)
}
