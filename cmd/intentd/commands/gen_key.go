package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gossipnet/intentd/config"
	tmos "github.com/gossipnet/intentd/libs/os"
	"github.com/gossipnet/intentd/types"
)

// MakeGenHolderKeyCommand returns the command that generates the key the
// node signs its intents with. It prints the key's address.
func MakeGenHolderKeyCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "gen-holder-key",
		Short: "Generate a holder key and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			holderKeyFile := conf.HolderKeyFile()
			if tmos.FileExists(holderKeyFile) {
				return fmt.Errorf("holder key at %s already exists", holderKeyFile)
			}

			hk, err := types.LoadOrGenHolderKey(holderKeyFile)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hk.Address)
			return err
		},
	}
}
