package main

import (
	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/hkd32/build"
	"github.com/lightningnetwork/hkd32/ckd"
	"github.com/lightningnetwork/hkd32/config"
	"github.com/lightningnetwork/hkd32/hdkey"
	"github.com/lightningnetwork/hkd32/hkd32"
	"github.com/lightningnetwork/hkd32/keychain"
	"github.com/lightningnetwork/hkd32/mnemonic"
)

// Subsystem is the logging code of the command line tool itself.
const Subsystem = "HCLI"

var (
	// logManager owns the subsystem loggers of every package.
	logManager *build.SubLoggerManager

	// logRotator is the optional log file writer.
	logRotator = build.NewRotatingLogWriter()

	log = btclog.Disabled
)

// initLogging creates the log backend, opens the log file if enabled and
// hands every package its subsystem logger.
func initLogging(cfg *config.Config) error {
	writer := &build.LogWriter{}
	if !cfg.LogConfig.File.Disable {
		err := logRotator.InitLogRotator(
			cfg.LogConfig.File, cfg.LogFile(),
		)
		if err != nil {
			return err
		}
		writer.RotatorPipe = logRotator
	}

	logManager = build.NewSubLoggerManager(writer)
	logManager.RegisterSubLogger(Subsystem, func(l btclog.Logger) {
		log = l
	})
	logManager.RegisterSubLogger(ckd.Subsystem, ckd.UseLogger)
	logManager.RegisterSubLogger(mnemonic.Subsystem, mnemonic.UseLogger)
	logManager.RegisterSubLogger(hdkey.Subsystem, hdkey.UseLogger)
	logManager.RegisterSubLogger(hkd32.Subsystem, hkd32.UseLogger)
	logManager.RegisterSubLogger(keychain.Subsystem, keychain.UseLogger)

	return nil
}

// closeLogging closes the log file.
func closeLogging() error {
	return logRotator.Close()
}

// logClosure is used to provide a closure over expensive logging operations
// so don't have to be performed when the logging level doesn't warrant it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a string
// which itself provides a Stringer interface so that it can be used with the
// logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
