// This program is a wallet for sending value to other public keys and for
// mining blocks against a node.
package main

import "github.com/ardanlabs/ledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
