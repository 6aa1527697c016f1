package main

import (
	"fmt"
	"os"

	"github.com/lightningnetwork/hkd32/build"
	"github.com/lightningnetwork/hkd32/config"
	"github.com/urfave/cli"
)

// configKey is the app metadata key holding the loaded config.
const configKey = "config"

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[hkdcli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hkdcli"
	app.Version = build.Version() + " commit=" + build.Commit
	if build.IsDevBuild() {
		app.Version += " dev"
	}
	app.Usage = "derive, inspect and use hierarchical deterministic keys"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "appdir",
			Value:     config.DefaultAppDir,
			Usage:     "The path to the base directory.",
			TakesFile: true,
		},
		cli.StringFlag{
			Name:      "configfile",
			Value:     config.DefaultConfigFile,
			Usage:     "The path to the config file.",
			TakesFile: true,
		},
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network extended keys are encoded for, " +
				"e.g. mainnet, testnet, regtest, simnet.",
			Value: "mainnet",
		},
		cli.IntFlag{
			Name: "cointype",
			Usage: "The BIP44 coin type of the key ring, -1 for " +
				"the coin type of the network.",
			Value: -1,
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "Logging level for all subsystems, or " +
				"<subsystem>=<level>,... Use show to list " +
				"the subsystems.",
			Value: build.DefaultLogLevel(),
		},
	}
	app.Before = setup
	app.After = teardown
	app.Commands = []cli.Command{
		genSeedCommand,
		seedCommand,
		deriveCommand,
		neuterCommand,
		inspectCommand,
		hkdCommand,
		signMessageCommand,
		verifyMessageCommand,
	}

	return app
}

// applyFlags copies the global flags that were set on the command line into
// cfg.
func applyFlags(ctx *cli.Context) func(*config.Config) {
	return func(cfg *config.Config) {
		if ctx.GlobalIsSet("appdir") {
			cfg.AppDir = ctx.GlobalString("appdir")
		}
		if ctx.GlobalIsSet("configfile") {
			cfg.ConfigFile = ctx.GlobalString("configfile")
		}
		if ctx.GlobalIsSet("network") {
			cfg.Network = ctx.GlobalString("network")
		}
		if ctx.GlobalIsSet("cointype") {
			cfg.CoinType = ctx.GlobalInt("cointype")
		}
		if ctx.GlobalIsSet("debuglevel") {
			cfg.DebugLevel = ctx.GlobalString("debuglevel")
		}
	}
}

// setup loads the config and starts logging before any command runs.
func setup(ctx *cli.Context) error {
	defaults := config.DefaultConfig()

	// The log file is opt-in through the config file.
	defaults.LogConfig.File.Disable = true

	cfg, err := config.LoadConfig(defaults, applyFlags(ctx))
	if err != nil {
		return err
	}

	if err := initLogging(cfg); err != nil {
		return err
	}

	if cfg.DebugLevel == "show" {
		fmt.Fprintln(ctx.App.Writer, "Supported subsystems",
			logManager.SupportedSubsystems())
		os.Exit(0)
	}

	if err := logManager.SetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	if ctx.App.Metadata == nil {
		ctx.App.Metadata = make(map[string]interface{})
	}
	ctx.App.Metadata[configKey] = cfg

	log.Debugf("Loaded config from %v, network %v, %v build",
		cfg.ConfigFile, cfg.ActiveNetParams.Name, build.Deployment)

	return nil
}

// teardown flushes the log file, if any.
func teardown(_ *cli.Context) error {
	return closeLogging()
}

// getConfig returns the config loaded by setup.
func getConfig(ctx *cli.Context) *config.Config {
	cfg, ok := ctx.App.Metadata[configKey].(*config.Config)
	if !ok {
		fatal(fmt.Errorf("config not loaded"))
	}

	return cfg
}
