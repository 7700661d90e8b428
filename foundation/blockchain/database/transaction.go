package database

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// TxOut is an amount of value owned by a public key. The unique id keeps two
// outputs with the same value and owner from sharing an identity.
type TxOut struct {
	Value    uint64        `json:"value" cbor:"1,keyasint"`     // Bitcoin: Amount in base units.
	UniqueID uuid.UUID     `json:"unique_id" cbor:"2,keyasint"` // Discriminator for outputs with equal value and owner.
	PubKey   hexutil.Bytes `json:"pubkey" cbor:"3,keyasint"`    // Compressed secp256k1 key of the owner.
}

// NewTxOut constructs an output paying the value to the owner of the public key.
func NewTxOut(value uint64, pubKey []byte) TxOut {
	return TxOut{
		Value:    value,
		UniqueID: uuid.New(),
		PubKey:   pubKey,
	}
}

// Hash returns the identity of the output. This is the value a TxIn
// references and signs when the output is spent.
func (out TxOut) Hash() digest.Hash {
	return digest.Sum(out)
}

// String implements the fmt.Stringer interface for logging.
func (out TxOut) String() string {
	return fmt.Sprintf("%s:%d", out.Hash(), out.Value)
}

// =============================================================================

// TxIn spends a previously created output.
type TxIn struct {
	PrevOutputHash digest.Hash   `json:"prev_output_hash" cbor:"1,keyasint"` // Hash of the output being spent.
	Signature      hexutil.Bytes `json:"signature" cbor:"2,keyasint"`        // [R|S] signature of the owner over PrevOutputHash.
}

// NewTxIn constructs an input spending the output with the specified hash.
// The private key must belong to the owner of that output.
func NewTxIn(prevOutputHash digest.Hash, privateKey *ecdsa.PrivateKey) (TxIn, error) {
	sig, err := signature.Sign(prevOutputHash, privateKey)
	if err != nil {
		return TxIn{}, fmt.Errorf("signing input %s: %w", prevOutputHash, err)
	}

	txIn := TxIn{
		PrevOutputHash: prevOutputHash,
		Signature:      sig,
	}

	return txIn, nil
}

// =============================================================================

// Transaction moves value from a set of spent outputs into a set of new
// outputs. The first transaction of a block is the coinbase and has no inputs.
type Transaction struct {
	Inputs  []TxIn  `json:"inputs" cbor:"1,keyasint"`
	Outputs []TxOut `json:"outputs" cbor:"2,keyasint"`
}

// NewTransaction constructs a transaction from the inputs and outputs.
func NewTransaction(inputs []TxIn, outputs []TxOut) Transaction {
	return Transaction{
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// NewCoinbase constructs an input-less transaction minting the value to the
// owner of the public key.
func NewCoinbase(value uint64, pubKey []byte) Transaction {
	return Transaction{
		Outputs: []TxOut{NewTxOut(value, pubKey)},
	}
}

// Hash implements the merkle Hashable interface for providing the identity
// of a transaction.
func (tx Transaction) Hash() digest.Hash {
	return digest.Sum(tx)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Transaction) Equals(otherTx Transaction) bool {
	return tx.Hash() == otherTx.Hash()
}

// IsCoinbase reports whether the transaction has the shape of a coinbase.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// OutputValue returns the total value of the outputs. The boolean is false
// when the total does not fit in 64 bits.
func (tx Transaction) OutputValue() (uint64, bool) {
	var total uint64
	for _, out := range tx.Outputs {
		var ok bool
		if total, ok = addValue(total, out.Value); !ok {
			return 0, false
		}
	}

	return total, true
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.Hash(), len(tx.Inputs), len(tx.Outputs))
}

// addValue adds two amounts and reports false on overflow.
func addValue(a uint64, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
