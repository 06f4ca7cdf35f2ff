package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// TamperAlertRepository persists hash-mismatch rejections for review
type TamperAlertRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTamperAlertRepository creates a new tamper alert repository
func NewTamperAlertRepository(db *sql.DB, log *logger.Logger) *TamperAlertRepository {
	return &TamperAlertRepository{
		db:     db,
		logger: log,
	}
}

// Record inserts a tamper alert row, assigning ID and timestamp when absent
func (r *TamperAlertRepository) Record(ctx context.Context, alert *types.TamperAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.ObservedAt.IsZero() {
		alert.ObservedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tamper_alerts (
			id, prescription_id, caller, code, presented_hash, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.PrescriptionID,
		alert.Caller,
		alert.Code,
		alert.PresentedHash,
		alert.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record tamper alert: %w", err)
	}

	r.logger.Security("tamper_alert_recorded", alert.Caller, map[string]interface{}{
		"prescription_id": alert.PrescriptionID,
		"code":            alert.Code,
	})
	return nil
}

// GetByPrescription retrieves all tamper alerts for a prescription
func (r *TamperAlertRepository) GetByPrescription(ctx context.Context, prescriptionID uint64) ([]*types.TamperAlert, error) {
	query := `
		SELECT id, prescription_id, caller, code, presented_hash, observed_at
		FROM tamper_alerts
		WHERE prescription_id = $1
		ORDER BY observed_at`

	rows, err := r.db.QueryContext(ctx, query, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tamper alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*types.TamperAlert
	for rows.Next() {
		var alert types.TamperAlert
		if err := rows.Scan(&alert.ID, &alert.PrescriptionID, &alert.Caller, &alert.Code, &alert.PresentedHash, &alert.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tamper alert row: %w", err)
		}
		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tamper alert rows: %w", err)
	}
	return alerts, nil
}
