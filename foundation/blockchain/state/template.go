package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// BlockTemplate assembles the next block for a miner. The coinbase pays the
// subsidy plus the fees of the mempool transactions that still verify
// against the unspent outputs, in arrival order. The returned block still
// needs to be solved.
func (s *State) BlockTemplate(pubKey []byte, timeStamp uint64) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := s.db.Height()

	prevHash := digest.Zero()
	if tip, exists := s.db.LatestBlock(); exists {
		prevHash = tip.Hash()
		if timeStamp <= tip.Header.TimeStamp {
			timeStamp = tip.Header.TimeStamp + 1
		}
	}

	spent := make(map[digest.Hash]struct{})
	var trans []database.Transaction
	var fees uint64

	// The genesis block carries only the coinbase.
	if height > 0 {
	next:
		for _, entry := range s.mempool.Copy() {
			for _, in := range entry.Tx.Inputs {
				if _, exists := spent[in.PrevOutputHash]; exists {
					continue next
				}
			}

			fee, err := database.VerifyTransaction(entry.Tx, s.db)
			if err != nil {
				s.evHandler("state: BlockTemplate: skip tx[%s]: %s", entry.Tx.Hash(), err)
				continue
			}

			if fees+fee < fees {
				continue
			}

			for _, in := range entry.Tx.Inputs {
				spent[in.PrevOutputHash] = struct{}{}
			}

			fees += fee
			trans = append(trans, entry.Tx)
		}
	}

	subsidy := s.genesis.Subsidy(height)
	if subsidy+fees < subsidy {
		return database.Block{}, fmt.Errorf("%w: subsidy plus fees overflow", database.ErrInvalidTransaction)
	}

	coinbase := database.NewCoinbase(subsidy+fees, pubKey)
	trans = append([]database.Transaction{coinbase}, trans...)

	block := database.NewBlock(database.BlockHeader{}, trans)
	root, err := block.ComputeMerkleRoot()
	if err != nil {
		return database.Block{}, fmt.Errorf("computing merkle root: %w", err)
	}

	block.Header = database.NewBlockHeader(timeStamp, 0, prevHash, root, s.db.Target())

	s.evHandler("state: BlockTemplate: height[%d]: trans[%d]: subsidy[%d]: fees[%d]", height, len(trans), subsidy, fees)

	return block, nil
}
