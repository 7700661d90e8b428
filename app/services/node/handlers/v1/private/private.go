// Package private maintains the group of handlers for miner and operator
// access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Metrics *metrics.Metrics
}

// BlockTemplate returns the next block to solve, paying the coinbase to the
// public key.
func (h Handlers) BlockTemplate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pubKey, err := hexutil.Decode(web.Param(r, "pubkey"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("decoding pubkey: %w", err), http.StatusBadRequest)
	}

	if err := signature.ValidatePublicKey(pubKey); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	block, err := h.State.BlockTemplate(pubKey, uint64(time.Now().UTC().Unix()))
	if err != nil {
		return errs.FromRule(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// AcceptBlock takes a solved block, validates it and if that passes, adds
// the block to the chain.
func (h Handlers) AcceptBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("accept block", "traceid", v.TraceID, "blk", block.Hash(), "prevBlk", block.Header.PrevBlockHash, "trans", len(block.Trans))

	err = h.State.AcceptBlock(block)
	h.Metrics.BlockAccepted(err)
	if err != nil {
		return errs.FromRule(err)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
		Height uint64 `json:"height"`
	}{
		Status: "accepted",
		Hash:   block.Hash().String(),
		Height: h.State.BlockHeight(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RebuildUTXOs derives the set of unspent outputs again from the blocks.
func (h Handlers) RebuildUTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.RebuildUTXOs(); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
		UTXOs  int    `json:"utxos"`
	}{
		Status: "rebuilt",
		UTXOs:  h.State.QueryUTXOCount(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AdjustTarget runs the difficulty adjustment for the current height. It is
// a no-op unless the height is a retarget boundary not yet adjusted.
func (h Handlers) AdjustTarget(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	adjusted := h.State.TryAdjustTarget()

	resp := struct {
		Adjusted bool   `json:"adjusted"`
		Target   string `json:"target"`
	}{
		Adjusted: adjusted,
		Target:   h.State.RetrieveTarget().String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
