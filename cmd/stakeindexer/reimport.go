package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dotstake/indexer/internal/config"
	"github.com/dotstake/indexer/internal/logging"
	"github.com/dotstake/indexer/internal/store"
)

func newReimportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reimport",
		Short: "Manage the reimport queue",
	}
	cmd.AddCommand(newReimportSubmitCmd())
	return cmd
}

func newReimportSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <relay_chain|asset_hub> <block_number>",
		Short: "Enqueue a block for reimport",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var chainTag store.ReimportChain
			switch args[0] {
			case "relay_chain":
				chainTag = store.ReimportChainRC
			case "asset_hub":
				chainTag = store.ReimportChainAH
			default:
				return errors.Errorf("chain must be relay_chain or asset_hub, got %q", args[0])
			}

			blockNumber, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.Wrap(err, "parsing block_number")
			}

			logger := logging.Nop()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			id, err := st.SubmitReimport(cmd.Context(), chainTag, blockNumber)
			if err != nil {
				return err
			}
			cmd.Printf("submitted reimport request %d for %s block %d\n", id, args[0], blockNumber)
			return nil
		},
	}
}
