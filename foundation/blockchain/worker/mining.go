package worker

import (
	"context"
	"sync"
	"time"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation assembles a block from the mempool, solves it and
// hands it to the state like any other block.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// The genesis block is always mined, after that only when there are
	// transactions waiting.
	height := w.state.BlockHeight()
	length := w.state.QueryMempoolLength()
	if height > 0 && length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// After mining a block or losing the tip, check if a new operation
	// should be signaled again.
	var again bool
	defer func() {
		if !again || w.isShutdown() {
			return
		}

		length := w.state.QueryMempoolLength()
		if length > 0 {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
			w.SignalStartMining()
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()

		block, err := w.state.BlockTemplate(w.pubKey, uint64(t.UTC().Unix()))
		if err != nil {
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			return
		}

		// Pending transactions can go stale when a block spends their
		// inputs first. A block paying only the coinbase isn't worth mining.
		if height > 0 && len(block.Trans) == 1 {
			w.evHandler("worker: runMiningOperation: MINING: no valid transactions to mine")
			return
		}

		if err := block.Solve(ctx, w.evHandler); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: %s", err)
			again = true
			return
		}

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(t))

		// WOW, we mined a block. It goes through the same rules as any
		// block. Log the error, but that's it.
		if err := w.state.AcceptBlock(block); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: WARNING: block not accepted: %s", err)
			return
		}

		again = true
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
