// Command stakeindexer runs the dual-chain staking indexer, and offers an
// operator subcommand for submitting manual reimport requests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stakeindexer",
		Short: "Dual-chain Relay Chain / Asset Hub staking indexer",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newReimportCmd())
	return root
}
