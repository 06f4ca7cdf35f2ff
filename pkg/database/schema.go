package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the off-chain index schema. No prescription content
// is stored here, only the same hashes and pointers the ledger holds.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createCredentialIndexTable,
		createPrescriptionIndexTable,
		createTamperAlertsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createCredentialIndexIndexes,
		createPrescriptionIndexIndexes,
		createTamperAlertsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}
	return nil
}

const createCredentialIndexTable = `
CREATE TABLE IF NOT EXISTS credential_index (
	token_id BIGINT PRIMARY KEY,
	holder TEXT NOT NULL,
	credential_type TEXT NOT NULL,
	license_hash TEXT NOT NULL,
	specialty TEXT,
	metadata_pointer TEXT,
	issued_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	revoked_at TIMESTAMPTZ
);`

const createPrescriptionIndexTable = `
CREATE TABLE IF NOT EXISTS prescription_index (
	prescription_id BIGINT PRIMARY KEY,
	doctor_token_id BIGINT NOT NULL,
	patient_data_hash TEXT NOT NULL,
	prescription_data_hash TEXT NOT NULL,
	ipfs_cid TEXT NOT NULL,
	status TEXT NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	pharmacist_token_id BIGINT,
	dispensed_at TIMESTAMPTZ,
	cancellation_reason TEXT
);`

const createTamperAlertsTable = `
CREATE TABLE IF NOT EXISTS tamper_alerts (
	id UUID PRIMARY KEY,
	prescription_id BIGINT NOT NULL,
	caller TEXT NOT NULL,
	code TEXT NOT NULL,
	presented_hash TEXT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL
);`

const createCredentialIndexIndexes = `
CREATE INDEX IF NOT EXISTS idx_credential_index_holder ON credential_index(holder);
CREATE INDEX IF NOT EXISTS idx_credential_index_type ON credential_index(credential_type);`

const createPrescriptionIndexIndexes = `
CREATE INDEX IF NOT EXISTS idx_prescription_index_patient ON prescription_index(patient_data_hash);
CREATE INDEX IF NOT EXISTS idx_prescription_index_doctor ON prescription_index(doctor_token_id);
CREATE INDEX IF NOT EXISTS idx_prescription_index_pharmacist ON prescription_index(pharmacist_token_id);
CREATE INDEX IF NOT EXISTS idx_prescription_index_status ON prescription_index(status);`

const createTamperAlertsIndexes = `
CREATE INDEX IF NOT EXISTS idx_tamper_alerts_prescription ON tamper_alerts(prescription_id);
CREATE INDEX IF NOT EXISTS idx_tamper_alerts_caller ON tamper_alerts(caller);`
