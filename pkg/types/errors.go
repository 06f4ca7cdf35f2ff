package types

import "fmt"

// ErrorType represents different categories of registry errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeAuthorization ErrorType = "authorization"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeStateConflict ErrorType = "state_conflict"
	ErrorTypeIntegrity     ErrorType = "integrity"
	ErrorTypeInternal      ErrorType = "internal"
)

// RegistryError represents a structured error raised by the registries.
// Every failure aborts the whole call; the code is the caller-visible signal.
type RegistryError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *RegistryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// IsTamperSignal reports whether the error should be treated as a potential
// tampering signal and logged distinctly for security monitoring.
func (e *RegistryError) IsTamperSignal() bool {
	return e.Type == ErrorTypeIntegrity
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewStateConflictError creates a new state conflict error
func NewStateConflictError(code, message string) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeStateConflict,
		Code:    code,
		Message: message,
	}
}

// NewIntegrityError creates a new integrity error with mismatch context
func NewIntegrityError(code, message string, details map[string]interface{}) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeIntegrity,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Authorization failure codes
const (
	ErrCodeNoCredentialFound = "NO_CREDENTIAL_FOUND"
	ErrCodeWrongRole         = "WRONG_ROLE"
	ErrCodeCredentialInvalid = "CREDENTIAL_INVALID"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeNotIssuingDoctor  = "NOT_ISSUING_DOCTOR"
)

// Validation failure codes
const (
	ErrCodeInvalidHolder           = "INVALID_HOLDER"
	ErrCodeInvalidPatientHash      = "INVALID_PATIENT_HASH"
	ErrCodeInvalidPrescriptionHash = "INVALID_PRESCRIPTION_HASH"
	ErrCodeMissingCid              = "MISSING_CID"
	ErrCodeInvalidValidityPeriod   = "INVALID_VALIDITY_PERIOD"
	ErrCodeInvalidSecret           = "INVALID_SECRET"
	ErrCodeInvalidCredentialType   = "INVALID_CREDENTIAL_TYPE"
	ErrCodeInvalidLicenseHash      = "INVALID_LICENSE_HASH"
)

// State conflict failure codes
const (
	ErrCodePrescriptionNotActive = "PRESCRIPTION_NOT_ACTIVE"
	ErrCodePrescriptionExpired   = "PRESCRIPTION_EXPIRED"
	ErrCodeAlreadyRevoked        = "ALREADY_REVOKED"
)

// Integrity failure codes
const (
	ErrCodePatientDataMismatch      = "PATIENT_DATA_MISMATCH"
	ErrCodePrescriptionDataMismatch = "PRESCRIPTION_DATA_MISMATCH"
)

// Other codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
