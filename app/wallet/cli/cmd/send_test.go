package cmd

import (
	"errors"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_BuildTransaction(t *testing.T) {
	owner, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	to, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	owned := []database.TxOut{
		database.NewTxOut(40, signature.PublicKey(owner)),
		database.NewTxOut(30, signature.PublicKey(owner)),
		database.NewTxOut(50, signature.PublicKey(owner)),
	}

	t.Log("Given the need to spend owned outputs.")
	{
		tx, err := buildTransaction(owner, owned, signature.PublicKey(to), 55, 5)
		if err != nil {
			t.Fatalf("\t%s\tShould build the transaction: %s", failed, err)
		}

		if len(tx.Inputs) != 2 {
			t.Fatalf("\t%s\tShould spend two outputs, got %d.", failed, len(tx.Inputs))
		}
		if len(tx.Outputs) != 2 || tx.Outputs[0].Value != 55 || tx.Outputs[1].Value != 10 {
			t.Fatalf("\t%s\tShould pay the value and the change: %v", failed, tx.Outputs)
		}
		t.Logf("\t%s\tShould spend in order and pay change back.", success)

		utxos := database.NewUTXOSet(owned)
		fee, err := database.VerifyTransaction(tx, utxos)
		if err != nil {
			t.Fatalf("\t%s\tShould build a valid transaction: %s", failed, err)
		}
		if fee != 5 {
			t.Fatalf("\t%s\tShould leave the fee, got %d.", failed, fee)
		}
		t.Logf("\t%s\tShould build a valid transaction leaving the fee.", success)

		if _, err := buildTransaction(owner, owned, signature.PublicKey(to), 200, 0); !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould reject spending more than owned: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject spending more than owned.", success)
	}
}
