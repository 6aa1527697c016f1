package hdkey

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func zeroSeedSymmetric(t require.TestingT) *SymmetricKey {
	seed, err := keymaterial.SeedFromBytes(make([]byte, 64))
	require.NoError(t, err)

	return NewSymmetricMaster(seed)
}

// TestSymmetricVectors pins symmetric derivations from a seed of 64 zero
// bytes. The root shares the BIP32 master node.
func TestSymmetricVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		key       string
		chainCode string
	}{
		{
			path:      "m",
			key:       "eafd15702fca3f80beb565e66f19e20bbad0a34b46bb12075cbf1c5d94bb27d2",
			chainCode: "cda6a96b8a91317d82fa5c6353562cd530761cf1eec6e13cfa3858b0b130b0bd",
		},
		{
			path:      "m/0'",
			key:       "e1e7478291116542c8ea20eba0b6f30d5a5b15ea1192cfbc2d9471802a56e991",
			chainCode: "04cc532f1c449bd3cc707a6cd3b12abbd0bf4ac7cf5da896fc1ea0c4eadd1577",
		},
		{
			path:      "m/0'/1'",
			key:       "5d02e01c4ca032d301327c6ad7a6b7a6ac284016c14b911037f22fbbb17a1fb2",
			chainCode: "3f091e04d90280eda08c8f8d8db0a8053dcc85837e58599c9cb319999af13b9c",
		},
	}

	root := zeroSeedSymmetric(t)
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			t.Parallel()

			path := hdpath.MustParse(test.path)
			key, err := root.DerivePath(path)
			require.NoError(t, err)

			chainCode := key.ChainCode()
			require.Equal(t, test.key,
				hex.EncodeToString(key.Key().Expose()))
			require.Equal(t, test.chainCode,
				hex.EncodeToString(chainCode[:]))
			require.Equal(t, uint8(path.Len()), key.Depth())
		})
	}
}

// TestSymmetricRejectsNormal checks normal child numbers are refused.
func TestSymmetricRejectsNormal(t *testing.T) {
	t.Parallel()

	root := zeroSeedSymmetric(t)

	_, err := root.Derive(hdpath.Normal(0))
	require.ErrorIs(t, err, ErrInvalidChildIndex)

	_, err = root.DerivePath(hdpath.MustParse("m/0'/1"))
	require.ErrorIs(t, err, ErrInvalidChildIndex)
}

// TestSymmetricDepth checks the depth limit of the symmetric tree.
func TestSymmetricDepth(t *testing.T) {
	t.Parallel()

	root := zeroSeedSymmetric(t)

	components := make([]hdpath.ChildNumber, MaxDepth+1)
	for i := range components {
		components[i] = hdpath.Hardened(0)
	}

	_, err := root.DerivePath(hdpath.New(components...))
	require.ErrorIs(t, err, ErrDepthExceeded)

	deepest, err := root.DerivePath(hdpath.New(components[:MaxDepth]...))
	require.NoError(t, err)

	_, err = deepest.Derive(hdpath.Hardened(0))
	require.ErrorIs(t, err, ErrDepthExceeded)
}

// TestSymmetricComposability checks prefix then suffix derivation equals a
// single derivation of the joined path.
func TestSymmetricComposability(t *testing.T) {
	t.Parallel()

	drawHardened := func(t *rapid.T, label string) hdpath.Path {
		raw := rapid.SliceOfN(
			rapid.Uint32Range(0, hdpath.MaxIndex), 0, 4,
		).Draw(t, label)

		comps := make([]hdpath.ChildNumber, len(raw))
		for i, r := range raw {
			comps[i] = hdpath.Hardened(r)
		}

		return hdpath.New(comps...)
	}

	rapid.Check(t, func(t *rapid.T) {
		seedBytes := rapid.SliceOfN(
			rapid.Byte(), keymaterial.SeedSize, keymaterial.SeedSize,
		).Draw(t, "seed")
		seed, err := keymaterial.SeedFromBytes(seedBytes)
		require.NoError(t, err)

		root := NewSymmetricMaster(seed)
		prefix := drawHardened(t, "prefix")
		suffix := drawHardened(t, "suffix")

		direct, err := root.DerivePath(prefix.Append(suffix))
		require.NoError(t, err)

		mid, err := root.DerivePath(prefix)
		require.NoError(t, err)
		viaPrefix, err := mid.DerivePath(suffix)
		require.NoError(t, err)

		require.True(t, direct.Key().Equal(viaPrefix.Key()))
		require.Equal(t, direct.ChainCode(), viaPrefix.ChainCode())
	})
}

// TestSymmetricKeyCopies checks that a root built from existing material
// does not alias it, and that the key is never printed.
func TestSymmetricKeyCopies(t *testing.T) {
	t.Parallel()

	raw := make([]byte, keymaterial.KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	material, err := keymaterial.FromBytes(raw)
	require.NoError(t, err)

	root := NewSymmetricKey(material, [32]byte{1})
	material.Zero()

	require.Equal(t, raw, root.Key().Expose())

	for _, verb := range []string{"%v", "%s", "%#v"} {
		require.Equal(t, "SymmetricKey[REDACTED]",
			fmt.Sprintf(verb, root))
	}

	encoded, err := root.ToBech32("hkd")
	require.NoError(t, err)

	hrp, decoded, err := keymaterial.FromBech32(encoded)
	require.NoError(t, err)
	require.Equal(t, "hkd", hrp)
	require.True(t, decoded.Equal(root.Key()))

	root.Zero()
	require.True(t, root.key.IsZeroed())
	require.Equal(t, [32]byte{}, [32]byte(root.ChainCode()))
}
