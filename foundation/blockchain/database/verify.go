package database

import (
	"fmt"
	"runtime"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"golang.org/x/sync/errgroup"
)

// sigCheck is an input signature waiting to be verified.
type sigCheck struct {
	tx     int
	hash   digest.Hash
	pubKey []byte
	sig    []byte
}

// spendTracker keeps the outputs spent and created so far inside a block so
// the same output can't be spent or produced twice.
type spendTracker struct {
	spent   map[digest.Hash]struct{}
	created map[digest.Hash]struct{}
	checks  []sigCheck
}

func newSpendTracker() *spendTracker {
	return &spendTracker{
		spent:   make(map[digest.Hash]struct{}),
		created: make(map[digest.Hash]struct{}),
	}
}

// VerifyTransactions checks the block's transactions against the set of
// unspent outputs that exist before the block is applied. The coinbase must
// mint exactly the subsidy for the height plus the fees of the block. The
// fees are returned on success.
func (b Block) VerifyTransactions(height uint64, subsidy uint64, utxos UTXOLookup, evHandler func(v string, args ...any)) (uint64, error) {
	hash := b.Hash()

	if len(b.Trans) == 0 {
		return 0, fmt.Errorf("%w: block has no transactions", ErrInvalidTransaction)
	}

	evHandler("database: VerifyTransactions: blk[%s]: height[%d]: check: coinbase shape", hash, height)

	coinbase := b.Trans[0]
	if !coinbase.IsCoinbase() {
		return 0, fmt.Errorf("%w: coinbase %s has %d inputs", ErrInvalidTransaction, coinbase.Hash(), len(coinbase.Inputs))
	}
	if len(coinbase.Outputs) == 0 {
		return 0, fmt.Errorf("%w: coinbase %s has no outputs", ErrInvalidTransaction, coinbase.Hash())
	}

	tracker := newSpendTracker()

	minted, err := tracker.produce(coinbase, utxos)
	if err != nil {
		return 0, err
	}

	var fees uint64
	for i, tx := range b.Trans[1:] {
		evHandler("database: VerifyTransactions: blk[%s]: check: tx[%s]", hash, tx)

		fee, err := tracker.spend(i+1, tx, utxos)
		if err != nil {
			return 0, err
		}

		var ok bool
		if fees, ok = addValue(fees, fee); !ok {
			return 0, fmt.Errorf("%w: block fees overflow", ErrInvalidTransaction)
		}
	}

	evHandler("database: VerifyTransactions: blk[%s]: check: coinbase mints subsidy[%d] plus fees[%d]", hash, subsidy, fees)

	expected, ok := addValue(subsidy, fees)
	if !ok {
		return 0, fmt.Errorf("%w: subsidy plus fees overflow", ErrInvalidTransaction)
	}

	if minted != expected {
		return 0, fmt.Errorf("%w: coinbase mints %d, exp %d", ErrInvalidTransaction, minted, expected)
	}

	evHandler("database: VerifyTransactions: blk[%s]: check: %d input signatures", hash, len(tracker.checks))

	if err := tracker.verifySignatures(); err != nil {
		return 0, err
	}

	return fees, nil
}

// VerifyTransaction checks a single non-coinbase transaction against the set
// of unspent outputs and returns its fee.
func VerifyTransaction(tx Transaction, utxos UTXOLookup) (uint64, error) {
	tracker := newSpendTracker()

	fee, err := tracker.spend(0, tx, utxos)
	if err != nil {
		return 0, err
	}

	if err := tracker.verifySignatures(); err != nil {
		return 0, err
	}

	return fee, nil
}

// spend checks the inputs and outputs of a regular transaction and records
// the signatures that still need to be verified.
func (st *spendTracker) spend(index int, tx Transaction, utxos UTXOLookup) (uint64, error) {
	if tx.IsCoinbase() {
		return 0, fmt.Errorf("%w: tx[%d] %s has no inputs", ErrInvalidTransaction, index, tx.Hash())
	}

	var inputs uint64
	for _, in := range tx.Inputs {
		prev, exists := utxos.LookupUTXO(in.PrevOutputHash)
		if !exists {
			return 0, fmt.Errorf("%w: tx[%d] spends unknown output %s", ErrInvalidTransaction, index, in.PrevOutputHash)
		}

		if _, exists := st.spent[in.PrevOutputHash]; exists {
			return 0, fmt.Errorf("%w: tx[%d] double spends output %s", ErrInvalidTransaction, index, in.PrevOutputHash)
		}
		st.spent[in.PrevOutputHash] = struct{}{}

		var ok bool
		if inputs, ok = addValue(inputs, prev.Value); !ok {
			return 0, fmt.Errorf("%w: tx[%d] input value overflow", ErrInvalidTransaction, index)
		}

		st.checks = append(st.checks, sigCheck{
			tx:     index,
			hash:   in.PrevOutputHash,
			pubKey: prev.PubKey,
			sig:    in.Signature,
		})
	}

	outputs, err := st.produce(tx, utxos)
	if err != nil {
		return 0, err
	}

	if inputs < outputs {
		return 0, fmt.Errorf("%w: tx[%d] spends %d but creates %d", ErrInvalidTransaction, index, inputs, outputs)
	}

	return inputs - outputs, nil
}

// produce records the outputs of a transaction and returns their total.
func (st *spendTracker) produce(tx Transaction, utxos UTXOLookup) (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		hash := out.Hash()

		if _, exists := st.created[hash]; exists {
			return 0, fmt.Errorf("%w: output %s is created twice", ErrInvalidTransaction, hash)
		}
		if _, exists := utxos.LookupUTXO(hash); exists {
			return 0, fmt.Errorf("%w: output %s already exists", ErrInvalidTransaction, hash)
		}
		st.created[hash] = struct{}{}

		var ok bool
		if total, ok = addValue(total, out.Value); !ok {
			return 0, fmt.Errorf("%w: output value overflow", ErrInvalidTransaction)
		}
	}

	return total, nil
}

// verifySignatures checks every recorded signature concurrently.
func (st *spendTracker) verifySignatures() error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, check := range st.checks {
		g.Go(func() error {
			if !signature.Verify(check.hash, check.pubKey, check.sig) {
				return fmt.Errorf("%w: tx[%d] input spending %s", ErrInvalidSignature, check.tx, check.hash)
			}
			return nil
		})
	}

	return g.Wait()
}
