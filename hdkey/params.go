package hdkey

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// knownNets are the networks whose version bytes are recognised when parsing
// a serialized key. Networks sharing version bytes resolve to the first
// entry, so regtest and signet keys parse as testnet keys.
var knownNets = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.RegressionNetParams,
	&chaincfg.SimNetParams,
	&chaincfg.SigNetParams,
}

// ParamsForVersion returns the network using the given version bytes and
// whether they identify a private key.
func ParamsForVersion(version [4]byte) (*chaincfg.Params, bool, bool) {
	for _, net := range knownNets {
		switch version {
		case net.HDPrivateKeyID:
			return net, true, true

		case net.HDPublicKeyID:
			return net, false, true
		}
	}

	return nil, false, false
}

// ParamsForName returns the network with the given name. "testnet" is
// accepted as an alias of testnet3.
func ParamsForName(name string) (*chaincfg.Params, bool) {
	if name == "testnet" {
		name = chaincfg.TestNet3Params.Name
	}

	for _, net := range knownNets {
		if net.Name == name {
			return net, true
		}
	}

	return nil, false
}
