package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"go.uber.org/zap"
)

// Rebuild replays the stored blocks and derives the unspent outputs again,
// writing a fresh state snapshot.
func Rebuild(log *zap.SugaredLogger, genesisPath string, dbPath string) error {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return err
	}

	strg, err := disk.New(dbPath)
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Genesis:   gen,
		Storage:   strg,
		EvHandler: ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	if err := st.RebuildUTXOs(); err != nil {
		return err
	}

	fmt.Printf("Height: %d  UTXOs: %d\n", st.BlockHeight(), st.QueryUTXOCount())

	return nil
}
