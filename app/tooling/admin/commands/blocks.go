package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
)

// Blocks prints the stored blocks in the optional [from, to] range.
func Blocks(args []string, dbPath string) error {
	from := uint64(0)
	to := ^uint64(0)

	if len(args) > 2 {
		n, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return err
		}
		from = n
	}
	if len(args) > 3 {
		n, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return err
		}
		to = n
	}

	strg, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer strg.Close()

	iter := strg.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return err
		}

		if blockData.Number < from {
			continue
		}
		if blockData.Number > to {
			break
		}

		fmt.Printf("Block: %d  Hash: %s  Prev: %s  Time: %d  Target: %s  Trans: %d\n",
			blockData.Number, blockData.Hash, blockData.Header.PrevBlockHash, blockData.Header.TimeStamp, blockData.Header.Target, len(blockData.Trans))

		for _, tx := range blockData.Trans {
			value, _ := tx.OutputValue()
			fmt.Printf("    Tx: %s  Inputs: %d  Outputs: %d  Value: %d\n", tx.Hash(), len(tx.Inputs), len(tx.Outputs), value)
		}
	}

	return nil
}
