package keychain

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func BenchmarkDerivePrivKey(t *testing.B) {
	keyRing := createTestKeyRing(t, CoinTypeBitcoin)

	var (
		privKey *btcec.PrivateKey
		err     error
	)

	keyDesc := KeyDescriptor{
		KeyLocator: KeyLocator{
			Family: KeyFamilyMultiSig,
			Index:  1,
		},
	}

	t.ReportAllocs()
	t.ResetTimer()

	for i := 0; i < t.N; i++ {
		privKey, err = keyRing.DerivePrivKey(keyDesc)
	}
	require.NoError(t, err)
	require.NotNil(t, privKey)
}

func BenchmarkDeriveNextKey(t *testing.B) {
	keyRing := createTestKeyRing(t, CoinTypeBitcoin)

	t.ReportAllocs()
	t.ResetTimer()

	for i := 0; i < t.N; i++ {
		_, err := keyRing.DeriveNextKey(KeyFamilyNodeKey)
		require.NoError(t, err)
	}
}
