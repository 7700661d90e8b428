// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory database of the chain
// and its unspent outputs.
package database

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// DatabaseIterator walks the blocks held by the serializer.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData), nil
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages the chain of blocks, the current target and the set of
// unspent outputs derived from the chain.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	blocks     []Block
	target     digest.Target
	retargeted uint64
	utxos      UTXOSet

	serializer Serializer
}

// New constructs an empty database. The current target starts at the
// protocol maximum. Blocks held by the serializer are not loaded, the
// caller replays them through ForEach.
func New(genesis genesis.Genesis, serializer Serializer) *Database {
	return &Database{
		genesis:    genesis,
		target:     genesis.MaxTarget,
		utxos:      make(UTXOSet),
		serializer: serializer,
	}
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Reset re-initializes the database back to an empty chain.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.serializer.Reset(); err != nil {
		return err
	}

	db.blocks = nil
	db.target = db.genesis.MaxTarget
	db.retargeted = 0
	db.utxos = make(UTXOSet)

	return nil
}

// Genesis returns the protocol parameters the database was built with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// Height returns the number of blocks in the chain.
func (db *Database) Height() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return uint64(len(db.blocks))
}

// LatestBlock returns the tip of the chain. The boolean is false when the
// chain is empty.
func (db *Database) LatestBlock() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, false
	}

	return db.blocks[len(db.blocks)-1], true
}

// GetBlock returns the block at the specified position in the chain.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d: %w", num, ErrNotFound)
	}

	return db.blocks[num], nil
}

// Blocks returns the blocks in the inclusive range. The range is clipped to
// the chain.
func (db *Database) Blocks(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	length := uint64(len(db.blocks))
	if length == 0 || from > to || from >= length {
		return nil
	}
	if to >= length {
		to = length - 1
	}

	blocks := make([]Block, to-from+1)
	copy(blocks, db.blocks[from:to+1])

	return blocks
}

// Target returns the current target a new block must declare.
func (db *Database) Target() digest.Target {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.target
}

// Retargeted returns the chain length at which the target was last adjusted.
func (db *Database) Retargeted() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.retargeted
}

// UpdateTarget replaces the current target and records the chain length the
// adjustment was made at.
func (db *Database) UpdateTarget(target digest.Target, height uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.target = target
	db.retargeted = height
}

// LookupUTXO implements the UTXOLookup interface.
func (db *Database) LookupUTXO(hash digest.Hash) (TxOut, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out, exists := db.utxos[hash]
	return out, exists
}

// CopyUTXOs makes a copy of the current set of unspent outputs.
func (db *Database) CopyUTXOs() UTXOSet {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Copy()
}

// UTXOCount returns the number of unspent outputs.
func (db *Database) UTXOCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.utxos)
}

// Commit appends a verified block to the chain and applies its outputs.
func (db *Database) Commit(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.utxos.Apply(block)
	db.blocks = append(db.blocks, block)
}

// RebuildUTXOs discards the set of unspent outputs and replays every block in
// the chain to derive it again.
func (db *Database) RebuildUTXOs() {
	db.mu.Lock()
	defer db.mu.Unlock()

	utxos := make(UTXOSet)
	for _, block := range db.blocks {
		utxos.Apply(block)
	}

	db.utxos = utxos
}

// Write persists the block as the next block of the chain.
func (db *Database) Write(block Block) error {
	return db.serializer.Write(NewBlockData(db.Height(), block))
}

// WriteState persists a snapshot of the derived chain state.
func (db *Database) WriteState() error {
	db.mu.RLock()
	stateData := StateData{
		Height:     uint64(len(db.blocks)),
		Target:     db.target,
		Retargeted: db.retargeted,
		UTXOs:      db.utxos.Outputs(),
	}
	if len(db.blocks) > 0 {
		stateData.TipHash = db.blocks[len(db.blocks)-1].Hash()
	}
	db.mu.RUnlock()

	return db.serializer.WriteState(stateData)
}

// ReadState returns the last snapshot of the derived chain state.
func (db *Database) ReadState() (StateData, error) {
	return db.serializer.ReadState()
}

// ForEach returns an iterator to walk through all the stored blocks
// starting with the genesis block.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}
