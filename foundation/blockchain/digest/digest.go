// Package digest provides the identity hash used for every record stored in
// the ledger and the 256-bit target those hashes are measured against.
package digest

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/minio/sha256-simd"
)

// Size is the number of bytes in a Hash.
const Size = 32

// encMode is the canonical encoder. Core deterministic encoding sorts map
// keys and uses the shortest form for every integer so the same record
// always produces the same bytes. Nil and empty slices encode the same way.
var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty

	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("digest: building cbor encoder: %s", err))
	}
	return em
}()

// =============================================================================

// Hash is a sha256 digest of the canonical encoding of a value. The bytes
// are read as a big endian unsigned integer when compared to a target.
type Hash [Size]byte

// Sum returns the hash of the canonical encoding of the value. The ledger
// types are always encodable, so a failure here is a programming error.
func Sum(value any) Hash {
	data, err := encMode.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("digest: encoding %T: %s", value, err))
	}

	return Hash(sha256.Sum256(data))
}

// Pair returns the hash of two hashes in the specified order.
func Pair(left Hash, right Hash) Hash {
	return Sum([2]Hash{left, right})
}

// Encode returns the canonical encoding of the value.
func Encode(value any) ([]byte, error) {
	return encMode.Marshal(value)
}

// Decode decodes canonically encoded data into the value.
func Decode(data []byte, value any) error {
	return cbor.Unmarshal(data, value)
}

// Zero returns the hash used to mark the absence of a previous block.
func Zero() Hash {
	return Hash{}
}

// IsZero reports whether the hash is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Int returns the hash as an unsigned 256-bit integer.
func (h Hash) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

// Cmp compares the integer values of two hashes.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// MatchesTarget reports whether the hash is less than or equal to the
// target. Both values are big endian with the same width, so comparing the
// bytes compares the integers.
func (h Hash) MatchesTarget(target Target) bool {
	return bytes.Compare(h[:], target[:]) <= 0
}

// String returns the hash as a 0x prefixed hex string.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decoding hash: %w", err)
	}

	if len(b) != Size {
		return fmt.Errorf("hash must be %d bytes, got %d", Size, len(b))
	}

	copy(h[:], b)
	return nil
}

// FromHex converts a 0x prefixed hex string into a hash.
func FromHex(s string) (Hash, error) {
	var h Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return Hash{}, err
	}
	return h, nil
}
