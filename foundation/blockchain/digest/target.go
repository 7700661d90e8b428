package digest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Target is the largest header hash accepted as proof of work. A lower
// target is a harder puzzle. The bytes are stored big endian so a target
// encodes the same way a Hash does.
type Target [Size]byte

// NewTarget converts an unsigned 256-bit integer into a target.
func NewTarget(v *uint256.Int) Target {
	return Target(v.Bytes32())
}

// TargetFromUint64 constructs a target from a small integer.
func TargetFromUint64(v uint64) Target {
	return NewTarget(uint256.NewInt(v))
}

// TargetFromHex parses a 0x prefixed hex number into a target. Leading
// zero digits are accepted.
func TargetFromHex(s string) (Target, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		digits, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return Target{}, fmt.Errorf("decoding target %q: %w", s, hexutil.ErrMissingPrefix)
	}

	if digits == "" {
		return Target{}, fmt.Errorf("decoding target %q: %w", s, hexutil.ErrEmptyNumber)
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}

	v, err := uint256.FromHex("0x" + digits)
	if err != nil {
		return Target{}, fmt.Errorf("decoding target %q: %w", s, err)
	}
	return NewTarget(v), nil
}

// MustTargetFromHex is like TargetFromHex but panics on a malformed value.
// It is intended for package level constants.
func MustTargetFromHex(s string) Target {
	t, err := TargetFromHex(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Int returns the target as an unsigned 256-bit integer.
func (t Target) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(t[:])
}

// Cmp compares the integer values of two targets.
func (t Target) Cmp(other Target) int {
	return bytes.Compare(t[:], other[:])
}

// IsZero reports whether the target is zero, a puzzle nobody can solve.
func (t Target) IsZero() bool {
	return t == Target{}
}

// String returns the target as a 0x prefixed hex number.
func (t Target) String() string {
	return t.Int().Hex()
}

// MarshalText implements the encoding.TextMarshaler interface.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface. Both the
// minimal hex form and the full 32 byte form are accepted.
func (t *Target) UnmarshalText(text []byte) error {
	if b, err := hexutil.Decode(string(text)); err == nil && len(b) == Size {
		copy(t[:], b)
		return nil
	}

	v, err := TargetFromHex(string(text))
	if err != nil {
		return err
	}

	*t = v
	return nil
}
