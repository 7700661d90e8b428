package private

import (
	"net/http"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Metrics *metrics.Metrics
}

// Routes binds all the version 1 private routes.
func Routes(app *web.App, cfg Config) {
	prv := Handlers{
		Log:     cfg.Log,
		State:   cfg.State,
		Metrics: cfg.Metrics,
	}

	app.Handle(http.MethodGet, version, "/node/block/template/:pubkey", prv.BlockTemplate)
	app.Handle(http.MethodPost, version, "/node/block/accept", prv.AcceptBlock)
	app.Handle(http.MethodPost, version, "/node/utxos/rebuild", prv.RebuildUTXOs)
	app.Handle(http.MethodPost, version, "/node/target/adjust", prv.AdjustTarget)
}
