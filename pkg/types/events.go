package types

import "time"

// Ledger event names. These, and the payload field names below, are contract
// surface: off-chain indexers and UIs key on them.
const (
	EventCredentialIssued      = "CredentialIssued"
	EventCredentialRevoked     = "CredentialRevoked"
	EventPrescriptionCreated   = "PrescriptionCreated"
	EventPrescriptionDispensed = "PrescriptionDispensed"
	EventPrescriptionCancelled = "PrescriptionCancelled"
)

// CredentialIssuedEvent is emitted when a credential is minted.
type CredentialIssuedEvent struct {
	TokenID        uint64         `json:"token_id"`
	Holder         string         `json:"holder"`
	CredentialType CredentialType `json:"credential_type"`
	Specialty      string         `json:"specialty"`
	IssuedAt       time.Time      `json:"issued_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// CredentialRevokedEvent is emitted when a credential is revoked.
type CredentialRevokedEvent struct {
	TokenID   uint64    `json:"token_id"`
	Holder    string    `json:"holder"`
	RevokedAt time.Time `json:"revoked_at"`
}

// PrescriptionCreatedEvent carries the full creation parameters plus
// timestamps, bit-for-bit as external indexers expect them.
type PrescriptionCreatedEvent struct {
	PrescriptionID       uint64    `json:"prescription_id"`
	DoctorTokenID        uint64    `json:"doctor_token_id"`
	PatientDataHash      string    `json:"patient_data_hash"`
	PrescriptionDataHash string    `json:"prescription_data_hash"`
	IpfsCid              string    `json:"ipfs_cid"`
	IssuedAt             time.Time `json:"issued_at"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// PrescriptionDispensedEvent is emitted on a successful dispense.
type PrescriptionDispensedEvent struct {
	PrescriptionID    uint64    `json:"prescription_id"`
	PharmacistTokenID uint64    `json:"pharmacist_token_id"`
	DispensedAt       time.Time `json:"dispensed_at"`
}

// PrescriptionCancelledEvent is emitted on cancellation.
type PrescriptionCancelledEvent struct {
	PrescriptionID uint64    `json:"prescription_id"`
	DoctorTokenID  uint64    `json:"doctor_token_id"`
	Reason         string    `json:"reason"`
	CancelledAt    time.Time `json:"cancelled_at"`
}
