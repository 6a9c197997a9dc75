package main

import (
	"context"
	"os"

	"github.com/gossipnet/intentd/cmd/intentd/commands"
	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/libs/cli"
	"github.com/gossipnet/intentd/libs/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := commands.ParseConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitFilesCommand(conf, logger),
		commands.MakeGenHolderKeyCommand(conf),
		commands.MakeSignIntentCommand(conf, logger),
		commands.NewRunNodeCmd(conf, logger),
		commands.VersionCmd,
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(2)
	}
}
