// This program performs administrative tasks against a node's storage while
// the node is down.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const (
	dbPath      = "zblock/blocks.db"
	genesisPath = "zblock/genesis.json"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("admin", "version", build)

	return processCommands(os.Args, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, log *zap.SugaredLogger) error {
	if len(args) < 2 {
		return errors.New("usage: admin genesis | blocks [from] [to] | state | rebuild")
	}

	switch args[1] {
	case "genesis":
		if err := commands.Genesis(genesisPath); err != nil {
			return fmt.Errorf("writing genesis: %w", err)
		}

	case "blocks":
		if err := commands.Blocks(args, dbPath); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}

	case "state":
		if err := commands.State(dbPath); err != nil {
			return fmt.Errorf("reading state: %w", err)
		}

	case "rebuild":
		if err := commands.Rebuild(log, genesisPath, dbPath); err != nil {
			return fmt.Errorf("rebuilding utxos: %w", err)
		}

	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
