package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gossipnet/intentd/config"
	tmbytes "github.com/gossipnet/intentd/libs/bytes"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

const defaultIntentTTL = 8

// MakeSignIntentCommand returns the command that signs an intent with the
// holder key and prints the hex encoded gossip message.
func MakeSignIntentCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		have, want string
		expiresIn  time.Duration
		nonce      uint64
		ttl        uint32
	)
	cmd := &cobra.Command{
		Use:     "sign-intent",
		Short:   "Sign an intent and print it as a hex encoded gossip message",
		Example: `  intentd sign-intent --have 10gold --want 3silver --expires-in 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			haveAsset, err := parseAsset(have)
			if err != nil {
				return fmt.Errorf("--have: %w", err)
			}
			wantAsset, err := parseAsset(want)
			if err != nil {
				return fmt.Errorf("--want: %w", err)
			}

			hk, err := types.LoadHolderKey(conf.HolderKeyFile())
			if err != nil {
				return err
			}

			now := time.Now()
			in := &types.Intent{Have: haveAsset, Want: wantAsset, Nonce: nonce}
			if !cmd.Flags().Changed("nonce") {
				in.Nonce = uint64(now.UnixNano())
			}
			if expiresIn > 0 {
				in.Expiry = now.Add(expiresIn)
			}
			if err := in.Sign(hk.PrivKeyEd25519()); err != nil {
				return err
			}

			msg := &types.IntentBroadcasterMessage{Intent: in, TTL: ttl}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			logger.Debug("signed intent", "intent", in, "fingerprint", in.Fingerprint())

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tmbytes.HexBytes(msg.Bytes()))
			return err
		},
	}
	cmd.Flags().StringVar(&have, "have", "", "asset given, as <amount><denom>")
	cmd.Flags().StringVar(&want, "want", "", "asset wanted, as <amount><denom>")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "expire the intent after this duration (0 never expires)")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "intent nonce (defaults to the current time in nanoseconds)")
	cmd.Flags().Uint32Var(&ttl, "ttl", defaultIntentTTL, "gossip hop limit")
	_ = cmd.MarkFlagRequired("have")
	_ = cmd.MarkFlagRequired("want")
	return cmd
}

// parseAsset parses "<amount><denom>", e.g. "10gold".
func parseAsset(s string) (types.Asset, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return types.Asset{}, fmt.Errorf("%q must start with an amount", s)
	}
	amount, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return types.Asset{}, err
	}
	if amount <= 0 {
		return types.Asset{}, fmt.Errorf("amount must be positive, got %d", amount)
	}
	denom := s[i:]
	if err := types.ValidateDenom(denom); err != nil {
		return types.Asset{}, err
	}
	return types.Asset{Denom: denom, Amount: amount}, nil
}
