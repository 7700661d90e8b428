// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"slices"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// Entry is a transaction waiting in the pool and the time it arrived.
type Entry struct {
	Arrived time.Time            `json:"arrived"`
	Tx      database.Transaction `json:"tx"`
}

// Mempool represents a cache of transactions waiting to be included in a
// block, keyed by the transaction hash.
type Mempool struct {
	mu   sync.RWMutex
	pool map[digest.Hash]Entry
	now  func() time.Time
}

// WithClock sets the function used to stamp arriving transactions.
func WithClock(now func() time.Time) func(mp *Mempool) {
	return func(mp *Mempool) {
		mp.now = now
	}
}

// New constructs a new mempool.
func New(options ...func(mp *Mempool)) *Mempool {
	mp := Mempool{
		pool: make(map[digest.Hash]Entry),
		now:  time.Now,
	}

	for _, option := range options {
		option(&mp)
	}

	return &mp
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. A replaced
// transaction keeps its original arrival time.
func (mp *Mempool) Upsert(tx database.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key := tx.Hash()

	entry, exists := mp.pool[key]
	if !exists {
		entry.Arrived = mp.now().UTC()
	}
	entry.Tx = tx

	mp.pool[key] = entry

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(hash digest.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, hash)
}

// Contains reports whether the transaction is in the mempool.
func (mp *Mempool) Contains(hash digest.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[hash]
	return exists
}

// Conflicts reports whether a transaction already in the pool spends any of
// the outputs the specified transaction spends.
func (mp *Mempool) Conflicts(tx database.Transaction) bool {
	spends := make(map[digest.Hash]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		spends[in.PrevOutputHash] = struct{}{}
	}

	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, entry := range mp.pool {
		for _, in := range entry.Tx.Inputs {
			if _, exists := spends[in.PrevOutputHash]; exists {
				return true
			}
		}
	}

	return false
}

// Copy returns the entries in the pool in arrival order.
func (mp *Mempool) Copy() []Entry {
	mp.mu.RLock()
	entries := make([]Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}
	mp.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.Arrived.Compare(b.Arrived); c != 0 {
			return c
		}
		return a.Tx.Hash().Cmp(b.Tx.Hash())
	})

	return entries
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[digest.Hash]Entry)
}

// Prune removes every transaction the block includes and returns the number
// of transactions removed.
func (mp *Mempool) Prune(block database.Block) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, tx := range block.Trans {
		key := tx.Hash()
		if _, exists := mp.pool[key]; exists {
			delete(mp.pool, key)
			removed++
		}
	}

	return removed
}
