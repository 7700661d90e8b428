package state

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// AcceptBlock takes a block, validates it against the consensus rules and
// if that passes, appends it to the chain. A rejected block leaves the
// chain, the unspent outputs and the mempool untouched.
func (s *State) AcceptBlock(block database.Block) error {
	s.evHandler("state: AcceptBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans))
	defer s.evHandler("state: AcceptBlock: completed: newBlk[%s]", block.Hash())

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.acceptBlock(block, true)
}

// =============================================================================

// acceptBlock validates the block against the current tip and applies it.
// The block is only written to storage when persist is true, a replayed
// block is already there.
func (s *State) acceptBlock(block database.Block, persist bool) error {
	height := s.db.Height()

	var previous *database.Block
	if tip, exists := s.db.LatestBlock(); exists {
		previous = &tip
	}

	s.evHandler("state: acceptBlock: validate block: height[%d]", height)

	if err := block.ValidateBlock(previous, s.db.Target(), s.evHandler); err != nil {
		return err
	}

	fees, err := block.VerifyTransactions(height, s.genesis.Subsidy(height), s.db, s.evHandler)
	if err != nil {
		return err
	}

	s.evHandler("state: acceptBlock: transactions verified: fees[%d]", fees)

	if persist {
		s.evHandler("state: acceptBlock: write to storage")

		if err := s.db.Write(block); err != nil {
			return fmt.Errorf("writing block %d: %w", height, err)
		}
	}

	s.evHandler("state: acceptBlock: update utxos and remove from mempool")

	s.db.Commit(block)

	if removed := s.mempool.Prune(block); removed > 0 {
		s.evHandler("state: acceptBlock: removed[%d] from mempool", removed)
	}

	s.tryAdjustTarget()

	if persist {
		if err := s.db.WriteState(); err != nil {
			s.evHandler("state: acceptBlock: WARNING: writing state: %s", err)
		}

		s.blockEvent(block)

		// Any block being mined no longer extends the tip.
		if s.Worker != nil {
			s.Worker.SignalCancelMining()
		}
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"hash":%q,"height":%d,"header":%s,"trans":%s}`, block.Hash(), s.db.Height()-1, string(blockHeaderJSON), string(blockTransJSON))
}
