package database

import "errors"

// Set of rule violations a block or transaction can be rejected for. Callers
// match on these with errors.Is, the wrapped text carries the detail.
var (
	ErrInvalidBlock       = errors.New("invalid block")
	ErrInvalidMerkleRoot  = errors.New("invalid merkle root")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// IsRuleError reports whether the error is one of the rule violations above.
func IsRuleError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidBlock),
		errors.Is(err, ErrInvalidMerkleRoot),
		errors.Is(err, ErrInvalidTransaction),
		errors.Is(err, ErrInvalidSignature):
		return true
	}

	return false
}
