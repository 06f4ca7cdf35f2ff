package types

import "time"

// PrescriptionStatus represents the stored lifecycle state of a prescription.
// Expired is never stored; it is derived from the expiry timestamp on read.
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionDispensed PrescriptionStatus = "dispensed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"

	// PrescriptionExpired only ever appears as a derived view status.
	PrescriptionExpired PrescriptionStatus = "expired"
)

// Prescription represents an immutable-once-created prescription record.
// It commits to the patient and clinical content hashes at creation; those
// hashes are the tamper-detection anchor at dispense time.
type Prescription struct {
	PrescriptionID       uint64             `json:"prescription_id"`
	DoctorTokenID        uint64             `json:"doctor_token_id"`
	PatientDataHash      string             `json:"patient_data_hash"`
	PrescriptionDataHash string             `json:"prescription_data_hash"`
	IpfsCid              string             `json:"ipfs_cid"`
	Status               PrescriptionStatus `json:"status"`
	IssuedAt             time.Time          `json:"issued_at"`
	ExpiresAt            time.Time          `json:"expires_at"`
	PharmacistTokenID    uint64             `json:"pharmacist_token_id,omitempty"`
	DispensedAt          *time.Time         `json:"dispensed_at,omitempty"`
	CancellationReason   string             `json:"cancellation_reason,omitempty"`
	SecretCommitment     string             `json:"secret_commitment"`
}

// IsExpired reports whether an Active prescription is past its validity
// window at the given instant. Expiry is evaluated lazily, never swept.
func (p *Prescription) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// EffectiveStatus returns the status as seen by callers: the stored status,
// except an Active record past expiry reads as Expired.
func (p *Prescription) EffectiveStatus(now time.Time) PrescriptionStatus {
	if p.Status == PrescriptionActive && p.IsExpired(now) {
		return PrescriptionExpired
	}
	return p.Status
}

// DispenseCheck is the result of a read-only dispensability probe. When not
// dispensable, Reason carries the error code the mutating call would fail with.
type DispenseCheck struct {
	Dispensable bool   `json:"dispensable"`
	Reason      string `json:"reason,omitempty"`
}

// ValidityDays bounds for prescriptions.
const (
	MinValidityDays = 1
	MaxValidityDays = 365
)
