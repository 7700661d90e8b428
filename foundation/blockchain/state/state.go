// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis    genesis.Genesis
	Storage    database.Serializer
	EvHandler  EventHandler
	OnRetarget func()
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	evHandler  EventHandler
	onRetarget func()
	Worker     Worker

	genesis genesis.Genesis
	mempool *mempool.Mempool
	db      *database.Database
}

// New constructs a new blockchain for data management. Blocks already held
// by the storage are replayed through the same rules used to accept new
// blocks.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler:  ev,
		onRetarget: cfg.OnRetarget,
		genesis:    cfg.Genesis,
		mempool:    mempool.New(),
		db:         database.New(cfg.Genesis, cfg.Storage),
	}

	if err := state.replay(); err != nil {
		return nil, err
	}

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop the mining G before the storage goes away.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

// Truncate resets the chain both in storage and in memory.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: Truncate: reset chain")

	s.mempool.Truncate()
	return s.db.Reset()
}

// =============================================================================

// replay loads the stored blocks and checks the stored state snapshot still
// describes the chain. A missing or stale snapshot is written again.
func (s *State) replay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := s.acceptBlock(block, false); err != nil {
			return fmt.Errorf("replaying block %d: %w", s.db.Height(), err)
		}
	}

	s.evHandler("state: replay: blocks[%d]: target[%s]: utxos[%d]", s.db.Height(), s.db.Target(), s.db.UTXOCount())

	stored, err := s.db.ReadState()
	switch {
	case errors.Is(err, database.ErrNotFound):
		if s.db.Height() == 0 {
			return nil
		}
		s.evHandler("state: replay: WARNING: no stored state, writing snapshot")

	case err != nil:
		return fmt.Errorf("reading state: %w", err)

	default:
		tip, _ := s.db.LatestBlock()
		if stored.Height == s.db.Height() && stored.Target == s.db.Target() && stored.TipHash == tip.Hash() && len(stored.UTXOs) == s.db.UTXOCount() {
			return nil
		}
		s.evHandler("state: replay: WARNING: stored state height[%d] target[%s] does not match chain, writing snapshot", stored.Height, stored.Target)
	}

	return s.db.WriteState()
}
