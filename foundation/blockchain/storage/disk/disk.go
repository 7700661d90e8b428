// Package disk implements the ability to read and write blocks and the chain
// state to a single bbolt file on disk.
package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	bolt "go.etcd.io/bbolt"
)

// Set of buckets and keys used in the file.
var (
	bucketBlocks = []byte("blocks")
	bucketState  = []byte("state")
	keySnapshot  = []byte("snapshot")
)

// Disk represents the serialization implementation for reading and storing
// blocks in a bbolt file. Blocks are keyed by their big endian number and
// values are the canonical cbor encoding. This implements the
// database.Serializer interface.
type Disk struct {
	db *bolt.DB
}

// New opens or creates the file at the specified path.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}

	if err := db.Update(createBuckets); err != nil {
		db.Close()
		return nil, err
	}

	return &Disk{db: db}, nil
}

// Close releases the file.
func (d *Disk) Close() error {
	return d.db.Close()
}

// Write takes the specified database block and stores it under its number.
// Blocks must be written in order.
func (d *Disk) Write(blockData database.BlockData) error {
	data, err := digest.Encode(blockData)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", blockData.Number, err)
	}

	f := func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)

		var next uint64
		if k, _ := b.Cursor().Last(); k != nil {
			next = binary.BigEndian.Uint64(k) + 1
		}

		if blockData.Number != next {
			return fmt.Errorf("block is out of order, got %d, exp %d", blockData.Number, next)
		}

		return b.Put(numberKey(blockData.Number), data)
	}

	return d.db.Update(f)
}

// GetBlock searches the file to locate and return the contents of the
// specified block by number.
func (d *Disk) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	f := func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get(numberKey(num))
		if data == nil {
			return fmt.Errorf("block %d: %w", num, database.ErrNotFound)
		}

		if err := digest.Decode(data, &blockData); err != nil {
			return fmt.Errorf("decoding block %d: %w", num, err)
		}

		return nil
	}

	if err := d.db.View(f); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{storage: d}
}

// WriteState replaces the stored snapshot of the chain state.
func (d *Disk) WriteState(stateData database.StateData) error {
	data, err := digest.Encode(stateData)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	f := func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put(keySnapshot, data)
	}

	return d.db.Update(f)
}

// ReadState returns the stored snapshot of the chain state.
func (d *Disk) ReadState() (database.StateData, error) {
	var stateData database.StateData

	f := func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keySnapshot)
		if data == nil {
			return fmt.Errorf("state: %w", database.ErrNotFound)
		}

		return digest.Decode(data, &stateData)
	}

	if err := d.db.View(f); err != nil {
		return database.StateData{}, err
	}

	return stateData, nil
}

// Reset will clear out the blockchain on disk.
func (d *Disk) Reset() error {
	f := func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketBlocks, bucketState} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}

		return createBuckets(tx)
	}

	return d.db.Update(f)
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	storage *Disk  // Access to the storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := di.storage.GetBlock(di.current)
	if errors.Is(err, database.ErrNotFound) {
		di.eoc = true
	}

	di.current++

	return blockData, err
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}

// =============================================================================

func createBuckets(tx *bolt.Tx) error {
	for _, name := range [][]byte{bucketBlocks, bucketState} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("creating bucket %s: %w", name, err)
		}
	}

	return nil
}

func numberKey(num uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], num)
	return key[:]
}
