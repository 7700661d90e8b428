package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/holiman/uint256"
)

// maxAdjustment bounds how far a single retarget can move the target in
// either direction.
const maxAdjustment = 4

// TryAdjustTarget recomputes the target when the chain length is a positive
// multiple of the retarget interval. It reports whether the target was
// adjusted. Calling it again at the same length has no effect. Every
// adjustment, including those made while accepting or replaying blocks, is
// reported once through Config.OnRetarget.
func (s *State) TryAdjustTarget() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tryAdjustTarget()
}

// =============================================================================

func (s *State) tryAdjustTarget() bool {
	length := s.db.Height()
	interval := s.genesis.RetargetInterval

	if length == 0 || length%interval != 0 || s.db.Retargeted() == length {
		return false
	}

	first, err := s.db.GetBlock(length - interval)
	if err != nil {
		panic(fmt.Sprintf("state: retarget: missing block %d: %s", length-interval, err))
	}
	last, _ := s.db.LatestBlock()

	if last.Header.TimeStamp <= first.Header.TimeStamp {
		panic(fmt.Sprintf("state: retarget: timestamps not increasing, first %d, last %d", first.Header.TimeStamp, last.Header.TimeStamp))
	}

	elapsed := last.Header.TimeStamp - first.Header.TimeStamp
	old := s.db.Target()
	target := nextTarget(old, elapsed, s.genesis.IdealInterval(), s.genesis.MaxTarget)

	s.db.UpdateTarget(target, length)

	s.evHandler("state: tryAdjustTarget: height[%d]: elapsed[%ds]: ideal[%ds]: old[%s]: new[%s]", length, elapsed, s.genesis.IdealInterval(), old, target)

	if s.onRetarget != nil {
		s.onRetarget()
	}

	return true
}

// nextTarget scales the target by how long the interval actually took
// compared to how long it should have taken. The result moves at most a
// factor of four from the old target and never exceeds the maximum.
func nextTarget(old digest.Target, elapsed uint64, ideal uint64, maxTarget digest.Target) digest.Target {
	if elapsed == 0 || ideal == 0 {
		panic(fmt.Sprintf("state: retarget: elapsed %d and ideal %d must be positive", elapsed, ideal))
	}

	oldInt := old.Int()
	factor := uint256.NewInt(maxAdjustment)

	next, overflow := new(uint256.Int).MulDivOverflow(oldInt, uint256.NewInt(elapsed), uint256.NewInt(ideal))
	if overflow {
		next.SetAllOne()
	}

	lower := new(uint256.Int).Div(oldInt, factor)
	upper, overflow := new(uint256.Int).MulOverflow(oldInt, factor)
	if overflow {
		upper.SetAllOne()
	}

	switch {
	case next.Lt(lower):
		next = lower
	case next.Gt(upper):
		next = upper
	}

	if maxInt := maxTarget.Int(); next.Gt(maxInt) {
		next = maxInt
	}

	return digest.NewTarget(next)
}
