package types

import "time"

// CredentialType represents the healthcare role bound to a credential
type CredentialType string

const (
	CredentialDoctor     CredentialType = "doctor"
	CredentialPharmacist CredentialType = "pharmacist"
)

// IsKnown reports whether the credential type is one of the defined roles.
func (t CredentialType) IsKnown() bool {
	switch t {
	case CredentialDoctor, CredentialPharmacist:
		return true
	}
	return false
}

// Credential represents a soul-bound credential record binding a holder
// identity to a healthcare role. Immutable once issued except IsActive,
// which is cleared exactly once by revocation.
type Credential struct {
	TokenID         uint64         `json:"token_id"`
	Holder          string         `json:"holder"`
	CredentialType  CredentialType `json:"credential_type"`
	LicenseHash     string         `json:"license_hash"`
	Specialty       string         `json:"specialty"`
	MetadataPointer string         `json:"metadata_pointer"`
	IssuedAt        time.Time      `json:"issued_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	IsActive        bool           `json:"is_active"`
	RevokedAt       *time.Time     `json:"revoked_at,omitempty"`
}

// IsValid reports whether the credential authorizes its holder at the given
// instant: active and not past expiry.
func (c *Credential) IsValid(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpiresAt)
}

// AdminConfig holds the set of identities authorized to perform admin
// operations. A single key or the members of an external multisig can back
// this set; the contracts only ever ask whether a caller is in it.
type AdminConfig struct {
	Authorizers []string  `json:"authorizers"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Authorizes reports whether the identity is in the authorizer set.
func (a *AdminConfig) Authorizes(identity string) bool {
	for _, id := range a.Authorizers {
		if id == identity {
			return true
		}
	}
	return false
}
