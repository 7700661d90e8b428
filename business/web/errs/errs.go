// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromRule marks a consensus rule violation as a trusted client error. Any
// other error is returned unchanged.
func FromRule(err error) error {
	if err == nil || !database.IsRuleError(err) {
		return err
	}

	return NewTrusted(err, http.StatusBadRequest)
}

// RuleKind returns the name of the rule violation the error carries.
func RuleKind(err error) string {
	switch {
	case errors.Is(err, database.ErrInvalidBlock):
		return "invalid_block"
	case errors.Is(err, database.ErrInvalidMerkleRoot):
		return "invalid_merkle_root"
	case errors.Is(err, database.ErrInvalidTransaction):
		return "invalid_transaction"
	case errors.Is(err, database.ErrInvalidSignature):
		return "invalid_signature"
	}

	return ""
}
