package database

import (
	"bytes"
	"maps"
	"slices"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// UTXOLookup represents the behavior required to resolve an unspent output
// by the hash an input references.
type UTXOLookup interface {
	LookupUTXO(hash digest.Hash) (TxOut, bool)
}

// UTXOSet is the set of spendable outputs keyed by the hash of the output.
type UTXOSet map[digest.Hash]TxOut

// NewUTXOSet constructs a set from a list of outputs.
func NewUTXOSet(outs []TxOut) UTXOSet {
	set := make(UTXOSet, len(outs))
	for _, out := range outs {
		set[out.Hash()] = out
	}

	return set
}

// LookupUTXO implements the UTXOLookup interface.
func (s UTXOSet) LookupUTXO(hash digest.Hash) (TxOut, bool) {
	out, exists := s[hash]
	return out, exists
}

// Apply removes every output the block spends and inserts every output the
// block creates. The block is expected to have been verified.
func (s UTXOSet) Apply(block Block) {
	for _, tx := range block.Trans {
		for _, in := range tx.Inputs {
			delete(s, in.PrevOutputHash)
		}
		for _, out := range tx.Outputs {
			s[out.Hash()] = out
		}
	}
}

// Copy returns a copy of the set.
func (s UTXOSet) Copy() UTXOSet {
	return maps.Clone(s)
}

// Outputs returns the outputs in the set ordered by hash.
func (s UTXOSet) Outputs() []TxOut {
	keys := slices.SortedFunc(maps.Keys(s), func(a, b digest.Hash) int {
		return a.Cmp(b)
	})

	outs := make([]TxOut, len(keys))
	for i, key := range keys {
		outs[i] = s[key]
	}

	return outs
}

// OwnedBy returns the outputs that belong to the public key and their total.
func (s UTXOSet) OwnedBy(pubKey []byte) ([]TxOut, uint64) {
	var owned []TxOut
	var total uint64
	for _, out := range s.Outputs() {
		if bytes.Equal(out.PubKey, pubKey) {
			owned = append(owned, out)
			total += out.Value
		}
	}

	return owned, total
}

// Total returns the sum of every output in the set.
func (s UTXOSet) Total() uint64 {
	var total uint64
	for _, out := range s {
		total += out.Value
	}

	return total
}
