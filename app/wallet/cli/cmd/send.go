package cmd

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
	fee   uint64
)

// ErrInsufficientFunds is returned when the wallet doesn't own enough
// value to cover the send and its fee.
var ErrInsufficientFunds = errors.New("insufficient funds")

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		toPubKey, err := hexutil.Decode(to)
		if err != nil {
			log.Fatal(err)
		}
		if err := signature.ValidatePublicKey(toPubKey); err != nil {
			log.Fatal(err)
		}

		o, err := queryOwned(hexutil.Encode(signature.PublicKey(privateKey)))
		if err != nil {
			log.Fatal(err)
		}

		tx, err := buildTransaction(privateKey, o.UTXOs, toPubKey, value, fee)
		if err != nil {
			log.Fatal(err)
		}

		var resp struct {
			Status string `json:"status"`
			Hash   string `json:"hash"`
		}
		if err := send(http.MethodPost, fmt.Sprintf("%s/v1/tx/submit", url), tx, &resp); err != nil {
			log.Fatal(err)
		}

		fmt.Println(resp.Status, resp.Hash)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Public key to send the value to.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&fee, "fee", "f", 0, "Fee left for the miner.")
}

// buildTransaction spends the owned outputs in order until they cover the
// value plus the fee. Anything left over is paid back to the owner.
func buildTransaction(privateKey *ecdsa.PrivateKey, owned []database.TxOut, to []byte, value uint64, fee uint64) (database.Transaction, error) {
	amount := value + fee
	if amount < value {
		return database.Transaction{}, fmt.Errorf("value %d plus fee %d overflows", value, fee)
	}

	var ins []database.TxIn
	var total uint64
	for _, out := range owned {
		if total >= amount && len(ins) > 0 {
			break
		}

		in, err := database.NewTxIn(out.Hash(), privateKey)
		if err != nil {
			return database.Transaction{}, err
		}

		ins = append(ins, in)
		total += out.Value
	}

	if len(ins) == 0 || total < amount {
		return database.Transaction{}, fmt.Errorf("%w: own %d, need %d", ErrInsufficientFunds, total, amount)
	}

	outs := []database.TxOut{database.NewTxOut(value, to)}
	if change := total - amount; change > 0 {
		outs = append(outs, database.NewTxOut(change, signature.PublicKey(privateKey)))
	}

	return database.NewTransaction(ins, outs), nil
}
