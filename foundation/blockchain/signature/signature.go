// Package signature provides helper functions for handling the blockchain
// signature needs. Outputs are owned by secp256k1 public keys and spent by
// signing the hash of the output being consumed.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ethereum/go-ethereum/crypto"
)

// Length is the size of a signature produced by Sign, the [R|S] values
// without the recovery id.
const Length = crypto.RecoveryIDOffset

// ErrInvalidSignature is returned when a signature is malformed.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Sign uses the specified private key to sign the hash.
func Sign(hash digest.Hash, privateKey *ecdsa.PrivateKey) ([]byte, error) {

	// Sign the hash with the private key to produce a [R|S|V] signature.
	sig, err := crypto.Sign(hash[:], privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the hash and the signature.
	publicKey, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), hash[:], rs) {
		return nil, ErrInvalidSignature
	}

	return rs, nil
}

// Verify reports whether the signature was produced over the hash by the
// owner of the public key.
func Verify(hash digest.Hash, publicKey []byte, sig []byte) bool {
	if len(sig) != Length || len(publicKey) == 0 {
		return false
	}

	return crypto.VerifySignature(publicKey, hash[:], sig)
}

// PublicKey returns the compressed form of the public key for the private key.
func PublicKey(privateKey *ecdsa.PrivateKey) []byte {
	return crypto.CompressPubkey(&privateKey.PublicKey)
}

// ValidatePublicKey checks the bytes decode into a point on the curve.
func ValidatePublicKey(publicKey []byte) error {
	if _, err := crypto.DecompressPubkey(publicKey); err != nil {
		if _, err := crypto.UnmarshalPubkey(publicKey); err != nil {
			return fmt.Errorf("invalid public key: %w", err)
		}
	}

	return nil
}
