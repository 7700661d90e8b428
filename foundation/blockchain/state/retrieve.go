package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block. The boolean
// is false when the chain is empty.
func (s *State) RetrieveLatestBlock() (database.Block, bool) {
	return s.db.LatestBlock()
}

// RetrieveTarget returns the target the next block must declare.
func (s *State) RetrieveTarget() digest.Target {
	return s.db.Target()
}

// RetrieveUTXOs returns a copy of the set of unspent outputs.
func (s *State) RetrieveUTXOs() database.UTXOSet {
	return s.db.CopyUTXOs()
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []mempool.Entry {
	return s.mempool.Copy()
}
