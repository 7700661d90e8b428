package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	TimeStamp     uint64        `json:"timestamp" cbor:"1,keyasint"`       // Bitcoin: Time the block was mined in unix seconds.
	Nonce         uint64        `json:"nonce" cbor:"2,keyasint"`           // Bitcoin: Value identified to solve the hash solution.
	PrevBlockHash digest.Hash   `json:"prev_block_hash" cbor:"3,keyasint"` // Bitcoin: Hash of the previous block in the chain.
	MerkleRoot    digest.Hash   `json:"merkle_root" cbor:"4,keyasint"`     // Bitcoin: Merkle tree root hash for the transactions in this block.
	Target        digest.Target `json:"target" cbor:"5,keyasint"`          // Bitcoin: The header hash must not exceed this value.
}

// NewBlockHeader constructs a header from its parts.
func NewBlockHeader(timeStamp uint64, nonce uint64, prevBlockHash digest.Hash, merkleRoot digest.Hash, target digest.Target) BlockHeader {
	return BlockHeader{
		TimeStamp:     timeStamp,
		Nonce:         nonce,
		PrevBlockHash: prevBlockHash,
		MerkleRoot:    merkleRoot,
		Target:        target,
	}
}

// Hash returns the unique hash for the header.
func (h BlockHeader) Hash() digest.Hash {
	return digest.Sum(h)
}

// =============================================================================

// Block represents a group of transactions batched together. The first
// transaction is the coinbase.
type Block struct {
	Header BlockHeader   `json:"header" cbor:"1,keyasint"`
	Trans  []Transaction `json:"trans" cbor:"2,keyasint"`
}

// NewBlock constructs a block from a header and its transactions.
func NewBlock(header BlockHeader, trans []Transaction) Block {
	return Block{
		Header: header,
		Trans:  trans,
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() digest.Hash {

	// CORE NOTE: Hashing the block header and not the whole block so the blockchain
	// can be cryptographically checked by only needing block headers and not full
	// blocks with the transaction data. The merkle root ties the header to the
	// transactions.

	return b.Header.Hash()
}

// ComputeMerkleRoot folds the block's transactions into their merkle root.
func (b Block) ComputeMerkleRoot() (digest.Hash, error) {
	return merkle.Root(b.Trans)
}

// Solve performs the work of mining to find a nonce that makes the header
// hash meet its target. Pointer semantics are being used since a nonce is
// being discovered.
func (b *Block) Solve(ctx context.Context, evHandler func(v string, args ...any)) error {
	evHandler("database: Solve: MINING: started")
	defer evHandler("database: Solve: MINING: completed")

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	b.Header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			evHandler("database: Solve: MINING: attempts[%d]", attempts)

			if ctx.Err() != nil {
				evHandler("database: Solve: MINING: CANCELLED")
				return ctx.Err()
			}
		}

		hash := b.Hash()
		if !hash.MatchesTarget(b.Header.Target) {
			b.Header.Nonce++
			continue
		}

		evHandler("database: Solve: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)

		return nil
	}
}

// ValidateBlock takes a block and validates its header against the current
// tip of the chain. A nil previous block means the chain is empty and the
// block is being checked as the genesis block, which is exempt from the
// timestamp check only. The transactions themselves are checked by
// VerifyTransactions.
func (b Block) ValidateBlock(previousBlock *Block, target digest.Target, evHandler func(v string, args ...any)) error {
	hash := b.Hash()

	switch previousBlock {
	case nil:
		evHandler("database: ValidateBlock: validate: blk[%s]: check: genesis block has no parent", hash)

		if !b.Header.PrevBlockHash.IsZero() {
			return fmt.Errorf("%w: genesis block must have a zero parent hash, got %s", ErrInvalidBlock, b.Header.PrevBlockHash)
		}

	default:
		evHandler("database: ValidateBlock: validate: blk[%s]: check: parent hash does match parent block", hash)

		if prevHash := previousBlock.Hash(); b.Header.PrevBlockHash != prevHash {
			return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrInvalidBlock, b.Header.PrevBlockHash, prevHash)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block target is the current target", hash)

	if b.Header.Target != target {
		return fmt.Errorf("%w: block target doesn't match the current target, got %s, exp %s", ErrInvalidBlock, b.Header.Target, target)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block hash has been solved", hash)

	if !hash.MatchesTarget(b.Header.Target) {
		return fmt.Errorf("%w: block hash %s does not meet target %s", ErrInvalidBlock, hash, b.Header.Target)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: merkle root does match transactions", hash)

	root, err := b.ComputeMerkleRoot()
	if err != nil {
		if errors.Is(err, merkle.ErrNoContent) {
			return fmt.Errorf("%w: block has no transactions", ErrInvalidTransaction)
		}
		return fmt.Errorf("computing merkle root: %w", err)
	}

	if root != b.Header.MerkleRoot {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrInvalidMerkleRoot, root, b.Header.MerkleRoot)
	}

	if previousBlock != nil {
		evHandler("database: ValidateBlock: validate: blk[%s]: check: block's timestamp is greater than parent block's timestamp", hash)

		if b.Header.TimeStamp <= previousBlock.Header.TimeStamp {
			parentTime := time.Unix(int64(previousBlock.Header.TimeStamp), 0).UTC()
			blockTime := time.Unix(int64(b.Header.TimeStamp), 0).UTC()
			return fmt.Errorf("%w: block timestamp is not after parent block, parent %s, block %s", ErrInvalidBlock, parentTime, blockTime)
		}
	}

	return nil
}
