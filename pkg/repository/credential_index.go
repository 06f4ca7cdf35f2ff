package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// CredentialIndexRepository mirrors credential records into PostgreSQL
type CredentialIndexRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCredentialIndexRepository creates a new credential index repository
func NewCredentialIndexRepository(db *sql.DB, log *logger.Logger) *CredentialIndexRepository {
	return &CredentialIndexRepository{
		db:     db,
		logger: log,
	}
}

// Upsert writes a credential row, replacing any existing row for the token
func (r *CredentialIndexRepository) Upsert(ctx context.Context, credential *types.Credential) error {
	query := `
		INSERT INTO credential_index (
			token_id, holder, credential_type, license_hash, specialty,
			metadata_pointer, issued_at, expires_at, is_active, revoked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			revoked_at = EXCLUDED.revoked_at`

	_, err := r.db.ExecContext(ctx, query,
		credential.TokenID,
		credential.Holder,
		string(credential.CredentialType),
		credential.LicenseHash,
		credential.Specialty,
		credential.MetadataPointer,
		credential.IssuedAt,
		credential.ExpiresAt,
		credential.IsActive,
		credential.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential index row: %w", err)
	}

	return nil
}

// GetByTokenID retrieves a credential row by token ID
func (r *CredentialIndexRepository) GetByTokenID(ctx context.Context, tokenID uint64) (*types.Credential, error) {
	query := `
		SELECT token_id, holder, credential_type, license_hash, specialty,
			metadata_pointer, issued_at, expires_at, is_active, revoked_at
		FROM credential_index
		WHERE token_id = $1`

	return r.scanCredential(r.db.QueryRowContext(ctx, query, tokenID))
}

// GetByHolder retrieves the live credential row for a holder
func (r *CredentialIndexRepository) GetByHolder(ctx context.Context, holder string) (*types.Credential, error) {
	query := `
		SELECT token_id, holder, credential_type, license_hash, specialty,
			metadata_pointer, issued_at, expires_at, is_active, revoked_at
		FROM credential_index
		WHERE holder = $1 AND is_active = TRUE
		ORDER BY token_id DESC
		LIMIT 1`

	return r.scanCredential(r.db.QueryRowContext(ctx, query, holder))
}

// MarkRevoked marks a credential row revoked
func (r *CredentialIndexRepository) MarkRevoked(ctx context.Context, tokenID uint64) error {
	query := `
		UPDATE credential_index
		SET is_active = FALSE, revoked_at = $2
		WHERE token_id = $1`

	result, err := r.db.ExecContext(ctx, query, tokenID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark credential revoked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("credential %d not in index", tokenID))
	}

	return nil
}

func (r *CredentialIndexRepository) scanCredential(row *sql.Row) (*types.Credential, error) {
	var credential types.Credential
	var credType string
	var revokedAt sql.NullTime

	err := row.Scan(
		&credential.TokenID,
		&credential.Holder,
		&credType,
		&credential.LicenseHash,
		&credential.Specialty,
		&credential.MetadataPointer,
		&credential.IssuedAt,
		&credential.ExpiresAt,
		&credential.IsActive,
		&revokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "credential not in index")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential index row: %w", err)
	}

	credential.CredentialType = types.CredentialType(credType)
	if revokedAt.Valid {
		credential.RevokedAt = &revokedAt.Time
	}
	return &credential, nil
}
