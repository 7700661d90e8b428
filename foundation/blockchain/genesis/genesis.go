// Package genesis maintains access to the genesis file which carries the
// consensus parameters every node must agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// BaseUnitsPerCoin is the number of base units in one coin.
const BaseUnitsPerCoin = 100_000_000

// maxHalvings is the number of halvings after which the subsidy is zero
// because the shift has consumed every bit of a 64 bit amount.
const maxHalvings = 64

// MaxTarget is the easiest target the protocol allows, 2^240-1.
var MaxTarget = digest.MustTargetFromHex("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

// Genesis represents the genesis file.
type Genesis struct {
	Date             time.Time     `json:"date"`
	ChainID          uint16        `json:"chain_id"`          // The chain id represents an unique id for this running instance.
	InitialSubsidy   uint64        `json:"initial_subsidy"`   // Base units minted by the first block.
	HalvingInterval  uint64        `json:"halving_interval"`  // Number of blocks between subsidy halvings.
	IdealBlockTime   uint64        `json:"ideal_block_time"`  // Seconds the network aims to spend on each block.
	RetargetInterval uint64        `json:"retarget_interval"` // Number of blocks between difficulty adjustments.
	MaxTarget        digest.Target `json:"max_target"`        // The easiest difficulty the protocol allows.
}

// Default returns the protocol parameters of the main chain.
func Default() Genesis {
	return Genesis{
		Date:             time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:          1,
		InitialSubsidy:   50 * BaseUnitsPerCoin,
		HalvingInterval:  210,
		IdealBlockTime:   10,
		RetargetInterval: 50,
		MaxTarget:        MaxTarget,
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters can drive the consensus rules.
func (g Genesis) Validate() error {
	switch {
	case g.HalvingInterval == 0:
		return errors.New("genesis: halving interval must be positive")
	case g.RetargetInterval == 0:
		return errors.New("genesis: retarget interval must be positive")
	case g.IdealBlockTime == 0:
		return errors.New("genesis: ideal block time must be positive")
	case g.MaxTarget.IsZero():
		return errors.New("genesis: max target must be positive")
	}

	return nil
}

// Subsidy returns the number of base units a block at the specified height
// is allowed to mint. The subsidy halves with integer division every
// halving interval and is zero once the halvings exhaust the 64 bit amount.
func (g Genesis) Subsidy(height uint64) uint64 {
	halvings := height / g.HalvingInterval
	if halvings >= maxHalvings {
		return 0
	}

	return g.InitialSubsidy >> halvings
}

// IdealInterval returns the number of seconds a full retarget interval
// should take.
func (g Genesis) IdealInterval() uint64 {
	return g.IdealBlockTime * g.RetargetInterval
}
