package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// QueryUTXOsByOwner returns the unspent outputs owned by the public key and
// their total value.
func (s *State) QueryUTXOsByOwner(pubKey []byte) ([]database.TxOut, uint64) {
	return s.db.CopyUTXOs().OwnedBy(pubKey)
}

// QueryUTXOCount returns the number of unspent outputs.
func (s *State) QueryUTXOCount() int {
	return s.db.UTXOCount()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers
// starting at 0 for the genesis block.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	height := s.db.Height()
	if height == 0 {
		return nil
	}

	if from == QueryLatest {
		from = height - 1
		to = from
	}
	if to == QueryLatest {
		to = height - 1
	}

	return s.db.Blocks(from, to)
}
