package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

var indexTestNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newIndexRepo(t *testing.T) (*PrescriptionIndexRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPrescriptionIndexRepository(db, logger.New("error")), mock
}

func prescriptionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"prescription_id", "doctor_token_id", "patient_data_hash",
		"prescription_data_hash", "ipfs_cid", "status", "issued_at",
		"expires_at", "pharmacist_token_id", "dispensed_at", "cancellation_reason",
	})
}

func TestPrescriptionIndexRepository_Upsert(t *testing.T) {
	repo, mock := newIndexRepo(t)

	prescription := &types.Prescription{
		PrescriptionID:       1,
		DoctorTokenID:        10,
		PatientDataHash:      "patient-hash-1",
		PrescriptionDataHash: "rx-hash-1",
		IpfsCid:              "QmRxCid",
		Status:               types.PrescriptionActive,
		IssuedAt:             indexTestNow,
		ExpiresAt:            indexTestNow.AddDate(0, 0, 30),
	}

	mock.ExpectExec("INSERT INTO prescription_index").
		WithArgs(
			prescription.PrescriptionID,
			prescription.DoctorTokenID,
			prescription.PatientDataHash,
			prescription.PrescriptionDataHash,
			prescription.IpfsCid,
			string(prescription.Status),
			prescription.IssuedAt,
			prescription.ExpiresAt,
			nil,
			nil,
			"",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), prescription)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescriptionIndexRepository_GetByPatientHash(t *testing.T) {
	repo, mock := newIndexRepo(t)

	dispensedAt := indexTestNow.Add(24 * time.Hour)
	rows := prescriptionRows().
		AddRow(uint64(1), uint64(10), "patient-hash-1", "rx-hash-1", "QmRxCid1",
			"dispensed", indexTestNow, indexTestNow.AddDate(0, 0, 30), int64(20), dispensedAt, nil).
		AddRow(uint64(2), uint64(10), "patient-hash-1", "rx-hash-2", "QmRxCid2",
			"active", indexTestNow, indexTestNow.AddDate(0, 0, 60), nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM prescription_index WHERE patient_data_hash").
		WithArgs("patient-hash-1").
		WillReturnRows(rows)

	history, err := repo.GetByPatientHash(context.Background(), "patient-hash-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, types.PrescriptionDispensed, history[0].Status)
	assert.Equal(t, uint64(20), history[0].PharmacistTokenID)
	require.NotNil(t, history[0].DispensedAt)
	assert.Equal(t, dispensedAt, *history[0].DispensedAt)

	assert.Equal(t, types.PrescriptionActive, history[1].Status)
	assert.Zero(t, history[1].PharmacistTokenID)
	assert.Nil(t, history[1].DispensedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescriptionIndexRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newIndexRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM prescription_index WHERE prescription_id").
		WithArgs(uint64(99)).
		WillReturnRows(prescriptionRows())

	_, err := repo.GetByID(context.Background(), 99)
	var regErr *types.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, types.ErrCodeNotFound, regErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
