package commands

import (
	"github.com/spf13/cobra"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/libs/log"
	tmos "github.com/gossipnet/intentd/libs/os"
	"github.com/gossipnet/intentd/types"
)

// MakeInitFilesCommand returns the command that initializes a fresh
// intentd home directory.
func MakeInitFilesCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		relay     bool
		withRules bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the intentd home directory",
		Long: `Initialize writes config.toml and a holder key under the home directory.
Existing files are kept. With --rules a sample rules file is written and the
matchmaker is pointed at it. With --relay the node only relays intents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mc := conf.Gossip.Matchmaker; mc != nil {
				if relay {
					mc.Enabled = false
				}
				if withRules {
					mc.RuleSource = config.DefaultRulesFile()
				}
			}
			return initFilesWithConfig(conf, logger, withRules)
		},
	}
	cmd.Flags().BoolVar(&relay, "relay", false, "disable the matchmaker and only relay intents")
	cmd.Flags().BoolVar(&withRules, "rules", false, "write a sample rules file and use it as the rule source")
	return cmd
}

func initFilesWithConfig(conf *config.Config, logger log.Logger, withRules bool) error {
	holderKeyFile := conf.HolderKeyFile()
	if tmos.FileExists(holderKeyFile) {
		logger.Info("found holder key", "path", holderKeyFile)
	} else {
		hk, err := types.LoadOrGenHolderKey(holderKeyFile)
		if err != nil {
			return err
		}
		logger.Info("generated holder key", "path", holderKeyFile, "address", hk.Address)
	}

	if withRules {
		path, err := config.WriteRulesFile(conf.RootDir)
		if err != nil {
			return err
		}
		logger.Info("wrote rules file", "path", path)
	}

	configFile := conf.ConfigFile()
	if tmos.FileExists(configFile) {
		logger.Info("found config file", "path", configFile)
		return nil
	}
	if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
		return err
	}
	logger.Info("generated config file", "path", configFile)
	return nil
}
