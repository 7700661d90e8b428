package state

// RebuildUTXOs discards the set of unspent outputs and derives it again by
// replaying every block in the chain. The result matches the set built up
// while accepting the blocks.
func (s *State) RebuildUTXOs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: RebuildUTXOs: started: blocks[%d]", s.db.Height())

	s.db.RebuildUTXOs()

	s.evHandler("state: RebuildUTXOs: completed: utxos[%d]", s.db.UTXOCount())

	return s.db.WriteState()
}

// BlockHeight returns the number of blocks in the chain.
func (s *State) BlockHeight() uint64 {
	return s.db.Height()
}
