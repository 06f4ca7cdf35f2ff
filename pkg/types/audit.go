package types

import "time"

// TamperAlert records a hash-mismatch rejection observed by the service
// layer. Alerts live in the off-chain index only; the ledger keeps the
// failed transaction itself.
type TamperAlert struct {
	ID             string    `json:"id"`
	PrescriptionID uint64    `json:"prescription_id"`
	Caller         string    `json:"caller"`
	Code           string    `json:"code"`
	PresentedHash  string    `json:"presented_hash"`
	ObservedAt     time.Time `json:"observed_at"`
}
