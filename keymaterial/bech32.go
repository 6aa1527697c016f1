package keymaterial

import (
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/lightningnetwork/hkd32/zero"
)

// ToBech32 renders the key as a bech32 string with the given human readable
// part. The result contains the secret and must be handled as such.
func (k *KeyMaterial) ToBech32(hrp string) (string, error) {
	conv, err := bech32.ConvertBits(k.buf, 8, 5, true)
	runtime.KeepAlive(k)
	if err != nil {
		return "", err
	}
	defer zero.Bytes(conv)

	return bech32.Encode(hrp, conv)
}

// FromBech32 decodes a bech32 encoded key, returning its human readable part
// alongside the key.
func FromBech32(encoded string) (string, *KeyMaterial, error) {
	hrp, data, err := bech32.Decode(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer zero.Bytes(data)

	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer zero.Bytes(conv)

	k, err := FromBytes(conv)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return hrp, k, nil
}
