package state_test

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap/zaptest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	aliceHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobHexKey   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

const genesisTime = 1_000

// =============================================================================

func Test_Genesis(t *testing.T) {
	alice := privateKey(t, aliceHexKey)

	t.Log("Given the need to start a chain with a genesis block.")
	{
		t.Logf("\tTest 0:\tWhen the genesis block has a parent.")
		{
			s := newState(t, testGenesis(), memory.New())

			header := database.NewBlockHeader(genesisTime, 0, digest.Sum("parent"), digest.Zero(), s.RetrieveTarget())
			block := solve(t, header, database.NewCoinbase(50, signature.PublicKey(alice)))

			if err := s.AcceptBlock(block); !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the block with %q, got %v", failed, database.ErrInvalidBlock, err)
			}
			if s.BlockHeight() != 0 || len(s.RetrieveUTXOs()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the chain empty.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the block and leave the chain empty.", success)
		}

		t.Logf("\tTest 1:\tWhen the genesis block has a zero parent.")
		{
			s := newState(t, testGenesis(), memory.New())

			coinbase := database.NewCoinbase(50*genesis.BaseUnitsPerCoin, signature.PublicKey(alice))
			block := mine(t, s, genesisTime, coinbase)

			if err := s.AcceptBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the block.", success)

			if s.BlockHeight() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould have a height of 1, got %d.", failed, s.BlockHeight())
			}

			utxos := s.RetrieveUTXOs()
			out, exists := utxos[coinbase.Outputs[0].Hash()]
			if len(utxos) != 1 || !exists || out.Value != 50*genesis.BaseUnitsPerCoin {
				t.Fatalf("\t%s\tTest 1:\tShould hold the single coinbase output.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould hold the single coinbase output.", success)
		}
	}
}

func Test_RejectGenesis(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	gen := testGenesis()

	type table struct {
		name  string
		gen   genesis.Genesis
		build func(t *testing.T, s *state.State) database.Block
		err   error
	}

	tt := []table{
		{
			name: "coinbase-over-mint",
			gen:  gen,
			build: func(t *testing.T, s *state.State) database.Block {
				return mine(t, s, genesisTime, database.NewCoinbase(gen.Subsidy(0)+1, signature.PublicKey(alice)))
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "coinbase-under-mint",
			gen:  gen,
			build: func(t *testing.T, s *state.State) database.Block {
				return mine(t, s, genesisTime, database.NewCoinbase(gen.Subsidy(0)-1, signature.PublicKey(alice)))
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "coinbase-with-inputs",
			gen:  gen,
			build: func(t *testing.T, s *state.State) database.Block {
				unknown := database.NewTxOut(10, signature.PublicKey(alice))
				tx := transfer(t, unknown, alice, signature.PublicKey(alice), gen.Subsidy(0), 0)
				return mine(t, s, genesisTime, tx)
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "second-coinbase",
			gen:  gen,
			build: func(t *testing.T, s *state.State) database.Block {
				cb1 := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))
				cb2 := database.NewCoinbase(0, signature.PublicKey(bob))
				return mine(t, s, genesisTime, cb1, cb2)
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "easier-target",
			gen:  genesis.Default(),
			build: func(t *testing.T, s *state.State) database.Block {
				coinbase := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))
				root, _ := database.NewBlock(database.BlockHeader{}, []database.Transaction{coinbase}).ComputeMerkleRoot()
				header := database.NewBlockHeader(genesisTime, 0, digest.Zero(), root, digest.NewTarget(new(uint256.Int).SetAllOne()))
				return solve(t, header, coinbase)
			},
			err: database.ErrInvalidBlock,
		},
	}

	t.Log("Given the need to hold the genesis block to the consensus rules.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling genesis block %q.", testID, tst.name)
				{
					s := newState(t, tst.gen, memory.New())

					err := s.AcceptBlock(tst.build(t, s))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould reject the block with %q, got %v", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the block with %q.", success, testID, tst.err)

					if s.BlockHeight() != 0 || len(s.RetrieveUTXOs()) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the chain empty.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the chain empty.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_AcceptBlock(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to extend the chain with valid blocks.")
	{
		t.Logf("\tTest 0:\tWhen a block spends a genesis output through the mempool.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())

			genCoinbase := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))
			accept(t, s, mine(t, s, genesisTime, genCoinbase))

			tx := transfer(t, genCoinbase.Outputs[0], alice, signature.PublicKey(bob), 30, 15)

			if err := s.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit the transaction: %v", failed, err)
			}
			if s.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have the transaction in the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to submit the transaction.", success)

			fee := gen.Subsidy(0) - 45
			coinbase := database.NewCoinbase(gen.Subsidy(1)+fee, signature.PublicKey(bob))
			accept(t, s, mine(t, s, genesisTime+10, coinbase, tx))
			t.Logf("\t%s\tTest 0:\tShould accept the block paying subsidy plus fees.", success)

			if s.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have removed the transaction from the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have removed the transaction from the mempool.", success)

			if _, exists := s.RetrieveUTXOs()[genCoinbase.Outputs[0].Hash()]; exists {
				t.Fatalf("\t%s\tTest 0:\tShould have spent the genesis output.", failed)
			}

			outs, total := s.QueryUTXOsByOwner(signature.PublicKey(bob))
			if len(outs) != 2 || total != 30+coinbase.Outputs[0].Value {
				t.Fatalf("\t%s\tTest 0:\tShould find bob's outputs, got %d worth %d.", failed, len(outs), total)
			}
			t.Logf("\t%s\tTest 0:\tShould track the outputs owned by each key.", success)

			blocks := s.QueryBlocksByNumber(0, state.QueryLatest)
			if len(blocks) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould query 2 blocks, got %d.", failed, len(blocks))
			}
			latest := s.QueryBlocksByNumber(state.QueryLatest, state.QueryLatest)
			if len(latest) != 1 || latest[0].Hash() != blocks[1].Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould query the latest block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould query blocks by number.", success)
		}
	}
}

func Test_RejectBlock(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	gen := testGenesis()
	subsidy := gen.Subsidy(1)

	type table struct {
		name  string
		build func(t *testing.T, s *state.State, prev database.TxOut) database.Block
		err   error
	}

	tt := []table{
		{
			name: "same-block-double-spend",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				tx1 := transfer(t, prev, alice, signature.PublicKey(bob), 10, prev.Value-20)
				tx2 := transfer(t, prev, alice, signature.PublicKey(bob), 20, prev.Value-30)
				return mine(t, s, genesisTime+10, database.NewCoinbase(subsidy+20, signature.PublicKey(bob)), tx1, tx2)
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "coinbase-over-mint",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				return mine(t, s, genesisTime+10, database.NewCoinbase(subsidy+1, signature.PublicKey(bob)))
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "coinbase-under-mint",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				return mine(t, s, genesisTime+10, database.NewCoinbase(subsidy-1, signature.PublicKey(bob)))
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "insufficient-inputs",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				tx := transfer(t, prev, alice, signature.PublicKey(bob), prev.Value, 1)
				return mine(t, s, genesisTime+10, database.NewCoinbase(subsidy, signature.PublicKey(bob)), tx)
			},
			err: database.ErrInvalidTransaction,
		},
		{
			name: "wrong-owner",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				tx := transfer(t, prev, bob, signature.PublicKey(bob), prev.Value, 0)
				return mine(t, s, genesisTime+10, database.NewCoinbase(subsidy, signature.PublicKey(bob)), tx)
			},
			err: database.ErrInvalidSignature,
		},
		{
			name: "same-timestamp",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				return mine(t, s, genesisTime, database.NewCoinbase(subsidy, signature.PublicKey(bob)))
			},
			err: database.ErrInvalidBlock,
		},
		{
			name: "wrong-target",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				tip, _ := s.RetrieveLatestBlock()
				coinbase := database.NewCoinbase(subsidy, signature.PublicKey(bob))
				root, _ := database.NewBlock(database.BlockHeader{}, []database.Transaction{coinbase}).ComputeMerkleRoot()
				header := database.NewBlockHeader(genesisTime+10, 0, tip.Hash(), root, digest.MustTargetFromHex("0x00ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
				return solve(t, header, coinbase)
			},
			err: database.ErrInvalidBlock,
		},
		{
			name: "wrong-parent",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				coinbase := database.NewCoinbase(subsidy, signature.PublicKey(bob))
				root, _ := database.NewBlock(database.BlockHeader{}, []database.Transaction{coinbase}).ComputeMerkleRoot()
				header := database.NewBlockHeader(genesisTime+10, 0, digest.Zero(), root, s.RetrieveTarget())
				return solve(t, header, coinbase)
			},
			err: database.ErrInvalidBlock,
		},
		{
			name: "tampered-transactions",
			build: func(t *testing.T, s *state.State, prev database.TxOut) database.Block {
				block := mine(t, s, genesisTime+10, database.NewCoinbase(subsidy, signature.PublicKey(bob)))
				block.Trans[0].Outputs[0].Value = subsidy + 1
				return block
			},
			err: database.ErrInvalidMerkleRoot,
		},
	}

	t.Log("Given the need to reject blocks that break the consensus rules.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling block %q.", testID, tst.name)
				{
					s := newState(t, gen, memory.New())

					genCoinbase := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))
					accept(t, s, mine(t, s, genesisTime, genCoinbase))

					pending := transfer(t, genCoinbase.Outputs[0], alice, signature.PublicKey(alice), 5, 5)
					if err := s.SubmitTransaction(pending); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to submit a transaction: %v", failed, testID, err)
					}

					before := s.RetrieveUTXOs()
					target := s.RetrieveTarget()

					err := s.AcceptBlock(tst.build(t, s, genCoinbase.Outputs[0]))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould reject the block with %q, got %v", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the block with %q.", success, testID, tst.err)

					after := s.RetrieveUTXOs()
					if s.BlockHeight() != 1 || len(after) != len(before) || s.RetrieveTarget() != target || s.QueryMempoolLength() != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the state unchanged.", failed, testID)
					}
					for hash := range before {
						if _, exists := after[hash]; !exists {
							t.Fatalf("\t%s\tTest %d:\tShould leave output %s unspent.", failed, testID, hash)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould leave the state unchanged.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ReorderTransactions(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to bind the transaction order to the header.")
	{
		t.Logf("\tTest 0:\tWhen the transactions of a block are reordered.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())

			aliceOut := database.NewTxOut(gen.Subsidy(0)-40, signature.PublicKey(alice))
			bobOut := database.NewTxOut(40, signature.PublicKey(bob))
			accept(t, s, mine(t, s, genesisTime, database.NewTransaction(nil, []database.TxOut{aliceOut, bobOut})))

			tx1 := transfer(t, aliceOut, alice, signature.PublicKey(bob), 10, aliceOut.Value-10)
			tx2 := transfer(t, bobOut, bob, signature.PublicKey(alice), 25, 15)

			block := mine(t, s, genesisTime+10, database.NewCoinbase(gen.Subsidy(1), signature.PublicKey(bob)), tx1, tx2)
			block.Trans[1], block.Trans[2] = block.Trans[2], block.Trans[1]

			if err := s.AcceptBlock(block); !errors.Is(err, database.ErrInvalidMerkleRoot) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the reordered block with %q, got %v", failed, database.ErrInvalidMerkleRoot, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the reordered block.", success)

			block = rehash(t, block)
			if err := s.AcceptBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block once the root is recomputed: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block once the root is recomputed.", success)
		}
	}
}

func Test_RebuildUTXOs(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to derive the unspent outputs from the chain.")
	{
		t.Logf("\tTest 0:\tWhen rebuilding after several blocks.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())

			prev := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice)).Outputs[0]
			accept(t, s, mine(t, s, genesisTime, database.NewTransaction(nil, []database.TxOut{prev})))

			for i := uint64(1); i <= 5; i++ {
				tx := transfer(t, prev, alice, signature.PublicKey(bob), 1, prev.Value-2)
				coinbase := database.NewCoinbase(gen.Subsidy(i)+1, signature.PublicKey(bob))
				accept(t, s, mine(t, s, genesisTime+10*i, coinbase, tx))
				prev = tx.Outputs[1]
			}

			incremental := s.RetrieveUTXOs()

			for range 2 {
				if err := s.RebuildUTXOs(); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to rebuild: %v", failed, err)
				}

				rebuilt := s.RetrieveUTXOs()
				if len(rebuilt) != len(incremental) {
					t.Fatalf("\t%s\tTest 0:\tShould rebuild %d outputs, got %d.", failed, len(incremental), len(rebuilt))
				}
				for hash, out := range incremental {
					if got, exists := rebuilt[hash]; !exists || got.Value != out.Value {
						t.Fatalf("\t%s\tTest 0:\tShould rebuild output %s.", failed, hash)
					}
				}
			}
			t.Logf("\t%s\tTest 0:\tShould rebuild the same set every time.", success)
		}
	}
}

func Test_TryAdjustTarget(t *testing.T) {
	alice := privateKey(t, aliceHexKey)

	t.Log("Given the need to adjust the target every retarget interval.")
	{
		t.Logf("\tTest 0:\tWhen blocks arrive faster than the ideal time.")
		{
			gen := testGenesis()
			gen.RetargetInterval = 4
			s := newState(t, gen, memory.New())

			old := s.RetrieveTarget()
			for i := range uint64(3) {
				accept(t, s, mine(t, s, genesisTime+5*i, database.NewCoinbase(gen.Subsidy(i), signature.PublicKey(alice))))
			}
			if s.RetrieveTarget() != old {
				t.Fatalf("\t%s\tTest 0:\tShould not adjust before the interval.", failed)
			}
			if s.TryAdjustTarget() {
				t.Fatalf("\t%s\tTest 0:\tShould not adjust at a length of 3.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not adjust before the interval.", success)

			accept(t, s, mine(t, s, genesisTime+15, database.NewCoinbase(gen.Subsidy(3), signature.PublicKey(alice))))

			exp, _ := new(uint256.Int).MulDivOverflow(old.Int(), uint256.NewInt(15), uint256.NewInt(40))
			if got := s.RetrieveTarget(); got != digest.NewTarget(exp) {
				t.Fatalf("\t%s\tTest 0:\tShould scale the target by 15/40, got %s, exp %s.", failed, got, digest.NewTarget(exp))
			}
			t.Logf("\t%s\tTest 0:\tShould scale the target by the elapsed time.", success)

			if s.TryAdjustTarget() {
				t.Fatalf("\t%s\tTest 0:\tShould not adjust twice at the same length.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not adjust twice at the same length.", success)

			tip, _ := s.RetrieveLatestBlock()
			coinbase := database.NewCoinbase(gen.Subsidy(4), signature.PublicKey(alice))
			root, _ := database.NewBlock(database.BlockHeader{}, []database.Transaction{coinbase}).ComputeMerkleRoot()
			stale := solve(t, database.NewBlockHeader(genesisTime+25, 0, tip.Hash(), root, old), coinbase)

			if err := s.AcceptBlock(stale); !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a block declaring the old target: %v", failed, err)
			}
			accept(t, s, mine(t, s, genesisTime+25, coinbase))
			t.Logf("\t%s\tTest 0:\tShould require the new target on the next block.", success)
		}
	}
}

func Test_RetargetNotify(t *testing.T) {
	alice := privateKey(t, aliceHexKey)

	t.Log("Given the need to report each difficulty adjustment once.")
	{
		t.Logf("\tTest 0:\tWhen the chain crosses a retarget boundary.")
		{
			gen := testGenesis()
			gen.RetargetInterval = 4

			var mu sync.Mutex
			var retargets int

			s, err := state.New(state.Config{
				Genesis: gen,
				Storage: memory.New(),
				OnRetarget: func() {
					mu.Lock()
					defer mu.Unlock()
					retargets++
				},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state: %v", failed, err)
			}

			for i := range uint64(4) {
				accept(t, s, mine(t, s, genesisTime+5*i, database.NewCoinbase(gen.Subsidy(i), signature.PublicKey(alice))))
			}
			s.TryAdjustTarget()
			s.TryAdjustTarget()

			mu.Lock()
			got := retargets
			mu.Unlock()

			if got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould report one adjustment, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould report one adjustment.", success)
		}
	}
}

func Test_Replay(t *testing.T) {
	alice := privateKey(t, aliceHexKey)

	t.Log("Given the need to restart a node from its storage.")
	{
		t.Logf("\tTest 0:\tWhen reopening a bbolt file holding a chain.")
		{
			gen := testGenesis()
			gen.RetargetInterval = 3
			path := filepath.Join(t.TempDir(), "blocks.db")

			strg, err := disk.New(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open storage: %v", failed, err)
			}
			s := newState(t, gen, strg)

			for i := range uint64(5) {
				accept(t, s, mine(t, s, genesisTime+7*i, database.NewCoinbase(gen.Subsidy(i), signature.PublicKey(alice))))
			}

			utxos := s.RetrieveUTXOs()
			target := s.RetrieveTarget()
			tip, _ := s.RetrieveLatestBlock()

			if err := s.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to shutdown: %v", failed, err)
			}

			strg, err = disk.New(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reopen storage: %v", failed, err)
			}
			s = newState(t, gen, strg)
			defer s.Shutdown()

			gotTip, _ := s.RetrieveLatestBlock()
			if s.BlockHeight() != 5 || gotTip.Hash() != tip.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould reload the chain, height %d.", failed, s.BlockHeight())
			}
			if s.RetrieveTarget() != target {
				t.Fatalf("\t%s\tTest 0:\tShould derive the same target, got %s, exp %s.", failed, s.RetrieveTarget(), target)
			}
			if len(s.RetrieveUTXOs()) != len(utxos) {
				t.Fatalf("\t%s\tTest 0:\tShould derive the same unspent outputs.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reload the same chain state.", success)

			accept(t, s, mine(t, s, genesisTime+50, database.NewCoinbase(gen.Subsidy(5), signature.PublicKey(alice))))
			t.Logf("\t%s\tTest 0:\tShould keep extending the reloaded chain.", success)
		}
	}
}

func Test_CompetingBlocks(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to serialize blocks competing for the same height.")
	{
		t.Logf("\tTest 0:\tWhen two blocks extend the same tip concurrently.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())
			accept(t, s, mine(t, s, genesisTime, database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))))

			blocks := []database.Block{
				mine(t, s, genesisTime+10, database.NewCoinbase(gen.Subsidy(1), signature.PublicKey(alice))),
				mine(t, s, genesisTime+11, database.NewCoinbase(gen.Subsidy(1), signature.PublicKey(bob))),
			}

			errs := make([]error, len(blocks))

			var wg sync.WaitGroup
			for i, block := range blocks {
				wg.Go(func() {
					errs[i] = s.AcceptBlock(block)
				})
			}
			wg.Wait()

			var accepted int
			for _, err := range errs {
				switch {
				case err == nil:
					accepted++
				case !errors.Is(err, database.ErrInvalidBlock):
					t.Fatalf("\t%s\tTest 0:\tShould reject the losing block for its parent: %v", failed, err)
				}
			}

			if accepted != 1 || s.BlockHeight() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould accept exactly one block, got %d.", failed, accepted)
			}
			t.Logf("\t%s\tTest 0:\tShould accept exactly one block.", success)
		}
	}
}

func Test_SubmitTransaction(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to admit wallet transactions to the mempool.")
	{
		t.Logf("\tTest 0:\tWhen submitting valid and invalid transactions.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())

			coinbase := database.NewCoinbase(gen.Subsidy(0), signature.PublicKey(alice))
			accept(t, s, mine(t, s, genesisTime, coinbase))

			if err := s.SubmitTransaction(database.NewCoinbase(5, signature.PublicKey(bob))); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a coinbase: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a coinbase.", success)

			unknown := database.NewTxOut(10, signature.PublicKey(alice))
			if err := s.SubmitTransaction(transfer(t, unknown, alice, signature.PublicKey(bob), 10, 0)); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould reject spending an unknown output: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject spending an unknown output.", success)

			if err := s.SubmitTransaction(transfer(t, coinbase.Outputs[0], bob, signature.PublicKey(bob), 10, 0)); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a transaction signed by the wrong key: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a transaction signed by the wrong key.", success)

			tx := transfer(t, coinbase.Outputs[0], alice, signature.PublicKey(bob), 10, 0)
			if err := s.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a valid transaction: %v", failed, err)
			}
			if err := s.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the same transaction again: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a valid transaction.", success)

			conflict := transfer(t, coinbase.Outputs[0], alice, signature.PublicKey(bob), 20, 0)
			if err := s.SubmitTransaction(conflict); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a conflicting transaction: %v", failed, err)
			}
			if s.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold a single transaction, got %d.", failed, s.QueryMempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould reject a conflicting transaction.", success)

			if err := s.Truncate(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to truncate: %v", failed, err)
			}
			if s.BlockHeight() != 0 || s.QueryMempoolLength() != 0 || s.QueryUTXOCount() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after truncate.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after truncate.", success)
		}
	}
}

// =============================================================================

// testGenesis returns the main chain parameters with a target every hash
// meets so tests don't spend time mining.
func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.MaxTarget = digest.NewTarget(new(uint256.Int).SetAllOne())
	return gen
}

func newState(t *testing.T, gen genesis.Genesis, strg database.Serializer) *state.State {
	log := zaptest.NewLogger(t).Sugar()

	ev := func(v string, args ...any) {
		log.Debug(fmt.Sprintf(v, args...))
	}

	s, err := state.New(state.Config{
		Genesis:   gen,
		Storage:   strg,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	return s
}

func privateKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	return pk
}

// transfer spends the output and pays the value to the public key with the
// change going back to the owner.
func transfer(t *testing.T, prev database.TxOut, owner *ecdsa.PrivateKey, to []byte, value uint64, change uint64) database.Transaction {
	in, err := database.NewTxIn(prev.Hash(), owner)
	if err != nil {
		t.Fatalf("Should be able to sign the input: %s", err)
	}

	outs := []database.TxOut{database.NewTxOut(value, to)}
	if change > 0 {
		outs = append(outs, database.NewTxOut(change, signature.PublicKey(owner)))
	}

	return database.NewTransaction([]database.TxIn{in}, outs)
}

// mine builds the next block on the current tip at the current target.
func mine(t *testing.T, s *state.State, timeStamp uint64, trans ...database.Transaction) database.Block {
	prevHash := digest.Zero()
	if tip, exists := s.RetrieveLatestBlock(); exists {
		prevHash = tip.Hash()
	}

	root, err := database.NewBlock(database.BlockHeader{}, trans).ComputeMerkleRoot()
	if err != nil {
		t.Fatalf("Should be able to compute the merkle root: %s", err)
	}

	return solve(t, database.NewBlockHeader(timeStamp, 0, prevHash, root, s.RetrieveTarget()), trans...)
}

// rehash recomputes the merkle root of the block and solves it again.
func rehash(t *testing.T, block database.Block) database.Block {
	root, err := block.ComputeMerkleRoot()
	if err != nil {
		t.Fatalf("Should be able to compute the merkle root: %s", err)
	}
	block.Header.MerkleRoot = root

	return solve(t, block.Header, block.Trans...)
}

func solve(t *testing.T, header database.BlockHeader, trans ...database.Transaction) database.Block {
	block := database.NewBlock(header, trans)
	if err := block.Solve(t.Context(), func(string, ...any) {}); err != nil {
		t.Fatalf("Should be able to solve the block: %s", err)
	}

	return block
}

func accept(t *testing.T, s *state.State, block database.Block) {
	if err := s.AcceptBlock(block); err != nil {
		t.Fatalf("Should be able to accept block %d: %s", s.BlockHeight(), err)
	}
}

func Test_BlockTemplate(t *testing.T) {
	alice := privateKey(t, aliceHexKey)
	bob := privateKey(t, bobHexKey)

	t.Log("Given the need to assemble blocks for a miner.")
	{
		t.Logf("\tTest 0:\tWhen the mempool holds transactions paying fees.")
		{
			gen := testGenesis()
			s := newState(t, gen, memory.New())

			block, err := s.BlockTemplate(signature.PublicKey(alice), genesisTime)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould build the genesis template: %v", failed, err)
			}
			if err := block.Solve(t.Context(), func(string, ...any) {}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould solve the genesis template: %v", failed, err)
			}
			accept(t, s, block)
			t.Logf("\t%s\tTest 0:\tShould accept the genesis template.", success)

			tx := transfer(t, block.Trans[0].Outputs[0], alice, signature.PublicKey(bob), 100, gen.Subsidy(0)-130)
			if err := s.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction: %v", failed, err)
			}

			block, err = s.BlockTemplate(signature.PublicKey(bob), genesisTime)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould build the template: %v", failed, err)
			}

			if block.Header.TimeStamp != genesisTime+1 {
				t.Fatalf("\t%s\tTest 0:\tShould move the timestamp past the tip, got %d.", failed, block.Header.TimeStamp)
			}
			if len(block.Trans) != 2 || block.Trans[0].Outputs[0].Value != gen.Subsidy(1)+30 {
				t.Fatalf("\t%s\tTest 0:\tShould pay the subsidy plus fees in the coinbase.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould pay the subsidy plus fees in the coinbase.", success)

			if err := block.Solve(t.Context(), func(string, ...any) {}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould solve the template: %v", failed, err)
			}
			accept(t, s, block)

			if s.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould drain the mempool, got %d.", failed, s.QueryMempoolLength())
			}
			if _, balance := s.QueryUTXOsByOwner(signature.PublicKey(bob)); balance != gen.Subsidy(1)+130 {
				t.Fatalf("\t%s\tTest 0:\tShould credit bob, got %d.", failed, balance)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the template and drain the mempool.", success)
		}
	}
}
