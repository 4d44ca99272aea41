package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeAuth       = "AUTH_ERROR"
	ErrCodeVaultState = "VAULT_STATE_ERROR"
	ErrCodeDecryption = "DECRYPTION_ERROR"
	ErrCodeCapability = "CAPABILITY_ERROR"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeStorage    = "STORAGE_ERROR"
	ErrCodeConfig     = "CONFIG_ERROR"
)

// Sentinel errors
var (
	// ErrDecryptionFailed covers both a wrong passphrase and tampered
	// ciphertext. The two cases are deliberately indistinguishable so
	// the engine cannot be used as a decryption oracle.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidBufferLength is returned for any encrypted blob shorter
	// than the fixed header, before any cryptographic work is attempted.
	ErrInvalidBufferLength = errors.New("invalid encrypted buffer length")

	ErrInvalidKey  = errors.New("invalid key size")
	ErrVaultLocked = errors.New("vault is locked")

	// ErrInvalidPassphrase is a failed unlock. The vault stays locked
	// and no partial key state is created.
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	ErrSignatureExpired       = errors.New("signature expired")
	ErrSignatureUnknown       = errors.New("signature unknown")
	ErrSignatureOwnerMismatch = errors.New("signature owner mismatch")

	ErrResourceNotFound = errors.New("resource not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// IsCapabilityDenied reports whether err is any capability validation
// failure. The HTTP boundary collapses all of them into one response so
// the client cannot tell which condition applied.
func IsCapabilityDenied(err error) bool {
	return errors.Is(err, ErrSignatureExpired) ||
		errors.Is(err, ErrSignatureUnknown) ||
		errors.Is(err, ErrSignatureOwnerMismatch)
}

// APIError represents an error returned over the HTTP surface.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// CapabilityError carries the precise validation failure for logs while
// the client-visible response stays generic.
type CapabilityError struct {
	ResourceID string
	OwnerID    string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability for resource %s (owner %s): %v", e.ResourceID, e.OwnerID, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// DecryptError wraps a decryption failure with the resource it
// concerned. The reason never distinguishes tag mismatch causes.
type DecryptError struct {
	ResourceID string
	Err        error
}

func (e *DecryptError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("decrypt resource %s: %v", e.ResourceID, e.Err)
	}
	return fmt.Sprintf("decrypt: %v", e.Err)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}
