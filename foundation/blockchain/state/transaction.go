package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// SubmitTransaction accepts a transaction from a wallet for inclusion in a
// future block. The transaction must spend existing unspent outputs it holds
// the keys for and must not spend an output another pending transaction
// already spends.
func (s *State) SubmitTransaction(tx database.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := tx.Hash()

	if tx.IsCoinbase() {
		return fmt.Errorf("%w: tx[%s] has no inputs", database.ErrInvalidTransaction, hash)
	}

	if !s.mempool.Contains(hash) && s.mempool.Conflicts(tx) {
		return fmt.Errorf("%w: tx[%s] spends an output a pending transaction spends", database.ErrInvalidTransaction, hash)
	}

	fee, err := database.VerifyTransaction(tx, s.db)
	if err != nil {
		return err
	}

	n := s.mempool.Upsert(tx)

	s.evHandler("state: SubmitTransaction: tx[%s]: fee[%d]: mempool[%d]", hash, fee, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}
