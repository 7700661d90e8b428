package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	nodeURL string
	blocks  int
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine blocks paying the coinbase to your wallet",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		pubKey := hexutil.Encode(signature.PublicKey(privateKey))

		for i := 0; i < blocks; i++ {
			if err := mineBlock(ctx, pubKey); err != nil {
				log.Fatal(err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&nodeURL, "node", "n", "http://localhost:9080", "Url of the node's private api.")
	mineCmd.Flags().IntVarP(&blocks, "blocks", "b", 1, "Number of blocks to mine.")
}

func mineBlock(ctx context.Context, pubKey string) error {
	var block database.Block
	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/node/block/template/%s", nodeURL, pubKey), nil, &block); err != nil {
		return fmt.Errorf("fetching template: %w", err)
	}

	ev := func(v string, args ...any) {
		fmt.Printf(v+"\n", args...)
	}

	if err := block.Solve(ctx, ev); err != nil {
		return fmt.Errorf("solving block: %w", err)
	}

	var resp struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
		Height uint64 `json:"height"`
	}
	if err := send(http.MethodPost, fmt.Sprintf("%s/v1/node/block/accept", nodeURL), block, &resp); err != nil {
		return fmt.Errorf("submitting block: %w", err)
	}

	fmt.Printf("%s: blk[%s]: height[%d]\n", resp.Status, resp.Hash, resp.Height)

	return nil
}
