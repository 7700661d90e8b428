package public

import (
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

type status struct {
	ChainID     uint16        `json:"chain_id"`
	Height      uint64        `json:"height"`
	LatestBlock digest.Hash   `json:"latest_block"`
	Target      digest.Target `json:"target"`
	UTXOs       int           `json:"utxos"`
	Mempool     int           `json:"mempool"`
}

type utxo struct {
	Hash     digest.Hash   `json:"hash"`
	Value    uint64        `json:"value"`
	UniqueID uuid.UUID     `json:"unique_id"`
	PubKey   hexutil.Bytes `json:"pubkey"`
}

type owned struct {
	PubKey  hexutil.Bytes `json:"pubkey"`
	Balance uint64        `json:"balance"`
	UTXOs   []utxo        `json:"utxos"`
}

type mempoolTx struct {
	Hash    digest.Hash          `json:"hash"`
	Arrived time.Time            `json:"arrived"`
	Tx      database.Transaction `json:"tx"`
}

type block struct {
	Number uint64                 `json:"number"`
	Hash   digest.Hash            `json:"hash"`
	Header database.BlockHeader   `json:"header"`
	Trans  []database.Transaction `json:"trans"`
}

// =============================================================================

type txIn struct {
	PrevOutputHash digest.Hash   `json:"prev_output_hash" validate:"required"`
	Signature      hexutil.Bytes `json:"signature" validate:"required,len=64"`
}

type txOut struct {
	Value    uint64        `json:"value"`
	UniqueID uuid.UUID     `json:"unique_id" validate:"required"`
	PubKey   hexutil.Bytes `json:"pubkey" validate:"required,pubkey"`
}

// submitTx is the transaction a wallet submits to the mempool.
type submitTx struct {
	Inputs  []txIn  `json:"inputs" validate:"required,min=1,dive"`
	Outputs []txOut `json:"outputs" validate:"required,min=1,dive"`
}

// Validate checks the value for completeness.
func (tx submitTx) Validate() error {
	return validate.Check(tx)
}

func toTransaction(tx submitTx) database.Transaction {
	ins := make([]database.TxIn, len(tx.Inputs))
	for i, in := range tx.Inputs {
		ins[i] = database.TxIn{
			PrevOutputHash: in.PrevOutputHash,
			Signature:      in.Signature,
		}
	}

	outs := make([]database.TxOut, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outs[i] = database.TxOut{
			Value:    out.Value,
			UniqueID: out.UniqueID,
			PubKey:   out.PubKey,
		}
	}

	return database.NewTransaction(ins, outs)
}
