// Command crosign derives Cosmos SDK accounts and signs transfers with a
// mnemonic or a Ledger device.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
