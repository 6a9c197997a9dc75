package commands

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/libs/log"
	tmos "github.com/gossipnet/intentd/libs/os"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/node"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding an intentd node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	// bind flags
	cmd.Flags().String("moniker", conf.Moniker, "node name")

	// p2p flags
	cmd.Flags().String(
		"p2p.transport",
		conf.P2P.Transport,
		"gossip transport (memory | gossipsub)")
	cmd.Flags().StringSlice(
		"p2p.listen-addresses",
		conf.P2P.ListenAddresses,
		"comma-delimited multiaddrs the libp2p host listens on")
	cmd.Flags().StringSlice(
		"p2p.bootstrap-peers",
		conf.P2P.BootstrapPeers,
		"comma-delimited /ip4/<host>/tcp/<port>/p2p/<id> peers dialed on start")
	cmd.Flags().String("p2p.topic", conf.P2P.Topic, "gossipsub topic intents are published on")

	// gossip flags
	cmd.Flags().Int("gossip.workers", conf.Gossip.Workers, "number of concurrent admission workers")
	if mc := conf.Gossip.Matchmaker; mc != nil {
		cmd.Flags().Bool("gossip.matchmaker.enabled", mc.Enabled, "run the matchmaker (false makes a relay-only node)")
		cmd.Flags().String(
			"gossip.matchmaker.rule-source",
			mc.RuleSource,
			"matching rules: builtin:barter, builtin:cycle or the path of a rules file")
		cmd.Flags().Int("gossip.matchmaker.mempool-capacity", mc.MempoolCapacity, "maximum number of pending intents")
	}

	// tx sink flags
	cmd.Flags().String("tx-sink.type", conf.TxSink.Type, "where crafted transactions go (log | kafka)")
	cmd.Flags().StringSlice("tx-sink.brokers", conf.TxSink.Brokers, "comma-delimited Kafka broker addresses")
	cmd.Flags().String("tx-sink.topic", conf.TxSink.Topic, "Kafka topic crafted transactions are written to")

	// instrumentation flags
	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus, "serve Prometheus metrics")
	cmd.Flags().String(
		"instrumentation.prometheus-listen-addr",
		conf.Instrumentation.PrometheusListenAddr,
		"Prometheus metrics listen address")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
func NewRunNodeCmd(conf *config.Config, logger log.Logger) *cobra.Command {
	var broadcast []string
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the intentd node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := node.New(conf, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("started node", "moniker", conf.Moniker, "matching", conf.Gossip.MatchingEnabled())

			for _, raw := range broadcast {
				if err := broadcastHexIntent(cmd, n, raw); err != nil {
					logger.Error("failed to broadcast intent", "err", err)
				}
			}

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(logger, func() {
				if err := n.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
					logger.Error("unable to stop the node", "error", err)
				}
			})

			// Run forever.
			select {}
		},
	}

	AddNodeFlags(cmd, conf)
	cmd.Flags().StringSliceVar(&broadcast, "broadcast", nil,
		"comma-delimited hex encoded messages (see sign-intent) to publish once started")
	return cmd
}

func broadcastHexIntent(cmd *cobra.Command, n *node.Node, raw string) error {
	bz, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("decoding hex: %w", err)
	}
	msg, err := n.GossipIntent().ParseRawMsg(bz)
	if err != nil {
		return err
	}
	return n.BroadcastIntent(cmd.Context(), msg)
}
