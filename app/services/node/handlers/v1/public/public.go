// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Evts    *events.Events
	Metrics *metrics.Metrics
	WS      websocket.Upgrader
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the current status of the chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := status{
		ChainID: h.State.RetrieveGenesis().ChainID,
		Height:  h.State.BlockHeight(),
		Target:  h.State.RetrieveTarget(),
		UTXOs:   h.State.QueryUTXOCount(),
		Mempool: h.State.QueryMempoolLength(),
	}

	if latest, exists := h.State.RetrieveLatestBlock(); exists {
		st.LatestBlock = latest.Hash()
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Genesis returns the consensus parameters of the chain.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// UTXOs returns the unspent outputs owned by the public key.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pubKey, err := hexutil.Decode(web.Param(r, "pubkey"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("decoding pubkey: %w", err), http.StatusBadRequest)
	}

	if err := signature.ValidatePublicKey(pubKey); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	outs, balance := h.State.QueryUTXOsByOwner(pubKey)

	resp := owned{
		PubKey:  pubKey,
		Balance: balance,
		UTXOs:   make([]utxo, len(outs)),
	}
	for i, out := range outs {
		resp.UTXOs[i] = utxo{
			Hash:     out.Hash(),
			Value:    out.Value,
			UniqueID: out.UniqueID,
			PubKey:   out.PubKey,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from
// values. Either value can be "latest".
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockNumber(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := blockNumber(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	dbBlocks := h.State.QueryBlocksByNumber(from, to)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	if from == state.QueryLatest {
		from = h.State.BlockHeight() - 1
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = block{
			Number: from + uint64(i),
			Hash:   blk.Hash(),
			Header: blk.Header,
			Trans:  blk.Trans,
		}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of pending transactions in arrival order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entries := h.State.RetrieveMempool()

	trans := make([]mempoolTx, len(entries))
	for i, entry := range entries {
		trans[i] = mempoolTx{
			Hash:    entry.Tx.Hash(),
			Arrived: entry.Arrived,
			Tx:      entry.Tx,
		}
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SubmitTransaction adds a new wallet transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var stx submitTx
	if err := web.Decode(r, &stx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx := toTransaction(stx)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx.Hash(), "inputs", len(tx.Inputs), "outputs", len(tx.Outputs))

	err = h.State.SubmitTransaction(tx)
	h.Metrics.TxSubmitted(err)
	if err != nil {
		return errs.FromRule(err)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   tx.Hash().String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func blockNumber(param string) (uint64, error) {
	if param == "latest" || param == "" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", param, err)
	}

	return num, nil
}
