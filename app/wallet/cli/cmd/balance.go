package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var url string

type owned struct {
	Balance uint64           `json:"balance"`
	UTXOs   []database.TxOut `json:"utxos"`
}

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		pubKey := hexutil.Encode(signature.PublicKey(privateKey))
		fmt.Println("For PubKey:", pubKey)

		o, err := queryOwned(pubKey)
		if err != nil {
			log.Fatal(err)
		}

		for _, out := range o.UTXOs {
			fmt.Printf("UTXO: %s  Value: %d\n", out.Hash(), out.Value)
		}
		fmt.Println("Balance:", o.Balance)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func queryOwned(pubKey string) (owned, error) {
	var o owned
	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/utxos/list/%s", url, pubKey), nil, &o); err != nil {
		return owned{}, err
	}

	return o, nil
}
