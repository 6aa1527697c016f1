// Package config holds the settings shared by the hkd32 tools. Settings are
// read from an ini style config file with go-flags, so the same struct tags
// also describe the command line options.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/hkd32/build"
	"github.com/lightningnetwork/hkd32/hdkey"
	"github.com/lightningnetwork/hkd32/hdpath"
)

const (
	// DefaultConfigFilename is the name of the config file inside the
	// application directory.
	DefaultConfigFilename = "hkd32.conf"

	// DefaultLogFilename is the name of the log file inside the log
	// directory.
	DefaultLogFilename = "hkd32.log"

	defaultLogDirname  = "logs"
	defaultNetwork     = "mainnet"
	defaultDerivePath  = "m/44'/0'/0'/0/0"
	defaultBech32HRP   = "hkd"
	networkDefaultCoin = -1
)

var (
	// DefaultAppDir is the default application directory.
	DefaultAppDir = btcutil.AppDataDir("hkd32", false)

	// DefaultConfigFile is the default full path of the config file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, DefaultConfigFilename)

	defaultLogDir = filepath.Join(DefaultAppDir, defaultLogDirname)

	// ErrInvalidConfig is returned by Validate for settings that make no
	// sense.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the set of options for the hkd32 tools.
//
//nolint:lll
type Config struct {
	AppDir     string `long:"appdir" description:"The base directory that contains the config and log files."`
	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	LogDir     string `long:"logdir" description:"Directory to log output."`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	Network    string `long:"network" description:"The network extended keys are encoded for" choice:"mainnet" choice:"testnet" choice:"testnet3" choice:"regtest" choice:"simnet" choice:"signet"`
	CoinType   int    `long:"cointype" description:"The BIP44 coin type of the key ring. -1 selects the coin type of the network."`
	DerivePath string `long:"derivepath" description:"The BIP32 path used when none is given on the command line"`
	Bech32HRP  string `long:"bech32hrp" description:"The human readable part of bech32 encoded symmetric keys"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`

	// ActiveNetParams is the network selected by Network, set by
	// Validate.
	ActiveNetParams *chaincfg.Params `no-flag:"true"`

	// ActivePath is DerivePath once parsed, set by Validate.
	ActivePath hdpath.Path `no-flag:"true"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		AppDir:     DefaultAppDir,
		ConfigFile: DefaultConfigFile,
		LogDir:     defaultLogDir,
		DebugLevel: build.DefaultLogLevel(),
		Network:    defaultNetwork,
		CoinType:   networkDefaultCoin,
		DerivePath: defaultDerivePath,
		Bech32HRP:  defaultBech32HRP,
		LogConfig:  build.DefaultLogConfig(),
	}
}

// LoadConfig builds the final config in three steps, like a command line
// parsed twice around a config file:
//
//  1. overrides is applied to cfg, so an alternative app dir or config file
//     is picked up.
//  2. The config file options are loaded on top. A missing config file is
//     only an error if its path was set explicitly.
//  3. overrides is applied again so command line options take precedence.
//
// The result is validated. overrides may be nil.
func LoadConfig(cfg Config, overrides func(*Config)) (*Config, error) {
	if overrides == nil {
		overrides = func(*Config) {}
	}
	overrides(&cfg)

	// If the application directory was moved, the config file moves
	// along unless it was set explicitly.
	appDir := CleanAndExpandPath(cfg.AppDir)
	configFile := CleanAndExpandPath(cfg.ConfigFile)
	explicitFile := configFile != DefaultConfigFile
	if appDir != DefaultAppDir && configFile == DefaultConfigFile {
		configFile = filepath.Join(appDir, DefaultConfigFilename)
	}

	if err := flags.IniParse(configFile, &cfg); err != nil {
		// A parse error is always fatal. Otherwise the file could
		// not be read, which is fine for the default location.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}
		if explicitFile {
			return nil, fmt.Errorf("unable to read config file "+
				"%v: %w", configFile, err)
		}
	}

	overrides(&cfg)

	cfg.AppDir = appDir
	cfg.ConfigFile = configFile
	if appDir != DefaultAppDir && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(appDir, defaultLogDirname)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the options and fills in the derived fields. All paths
// are cleaned and expanded.
func (c *Config) Validate() error {
	net, ok := hdkey.ParamsForName(c.Network)
	if !ok {
		return fmt.Errorf("%w: unknown network %q", ErrInvalidConfig,
			c.Network)
	}
	c.ActiveNetParams = net

	switch {
	case c.CoinType == networkDefaultCoin:
		c.CoinType = int(net.HDCoinType)

	case c.CoinType < 0 || c.CoinType > int(hdpath.MaxIndex):
		return fmt.Errorf("%w: coin type %d out of range",
			ErrInvalidConfig, c.CoinType)
	}

	path, err := hdpath.Parse(c.DerivePath)
	if err != nil {
		return fmt.Errorf("%w: derivepath: %w", ErrInvalidConfig, err)
	}
	c.ActivePath = path

	if c.Bech32HRP == "" {
		return fmt.Errorf("%w: empty bech32hrp", ErrInvalidConfig)
	}

	if c.LogConfig == nil {
		c.LogConfig = build.DefaultLogConfig()
	}
	if err := c.LogConfig.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.AppDir = CleanAndExpandPath(c.AppDir)
	c.ConfigFile = CleanAndExpandPath(c.ConfigFile)
	c.LogDir = CleanAndExpandPath(c.LogDir)

	return nil
}

// LogFile returns the full path of the log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, DefaultLogFilename)
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
