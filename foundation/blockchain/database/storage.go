package database

import (
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// ErrNotFound is returned by a Serializer when the requested record was
// never written.
var ErrNotFound = errors.New("not found")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	WriteState(stateData StateData) error
	ReadState() (StateData, error)
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// BlockData represents what is written to storage for each block.
type BlockData struct {
	Number uint64        `json:"number" cbor:"1,keyasint"`
	Hash   digest.Hash   `json:"hash" cbor:"2,keyasint"`
	Header BlockHeader   `json:"header" cbor:"3,keyasint"`
	Trans  []Transaction `json:"trans" cbor:"4,keyasint"`
}

// NewBlockData constructs the value to serialize to storage. The number is
// the position of the block in the chain starting at 0 for genesis.
func NewBlockData(number uint64, block Block) BlockData {
	return BlockData{
		Number: number,
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return NewBlock(blockData.Header, blockData.Trans)
}

// StateData represents the derived chain state written to storage after a
// block is accepted or the set of unspent outputs is rebuilt.
type StateData struct {
	Height     uint64        `json:"height" cbor:"1,keyasint"`
	TipHash    digest.Hash   `json:"tip_hash" cbor:"2,keyasint"`
	Target     digest.Target `json:"target" cbor:"3,keyasint"`
	Retargeted uint64        `json:"retargeted" cbor:"4,keyasint"`
	UTXOs      []TxOut       `json:"utxos" cbor:"5,keyasint"`
}
