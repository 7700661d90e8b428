package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
)

// State prints the stored state snapshot.
func State(dbPath string) error {
	strg, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer strg.Close()

	st, err := strg.ReadState()
	if err != nil {
		return err
	}

	var total uint64
	for _, out := range st.UTXOs {
		total += out.Value
	}

	fmt.Printf("Height: %d\nTip: %s\nTarget: %s\nRetargeted: %d\nUTXOs: %d\nSupply: %d\n",
		st.Height, st.TipHash, st.Target, st.Retargeted, len(st.UTXOs), total)

	return nil
}
