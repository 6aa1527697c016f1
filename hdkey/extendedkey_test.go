package hdkey

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type vectorStep struct {
	path string
	xprv string
	xpub string
}

type bip32Vector struct {
	name  string
	seed  string
	steps []vectorStep
}

// bip32Vectors are the reference BIP32 test vectors 1 to 3.
var bip32Vectors = []bip32Vector{
	{
		name: "vector 1",
		seed: "000102030405060708090a0b0c0d0e0f",
		steps: []vectorStep{
			{
				path: "m",
				xprv: "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi",
				xpub: "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8",
			},
			{
				path: "m/0'",
				xprv: "xprv9uHRZZhk6KAJC1avXpDAp4MDc3sQKNxDiPvvkX8Br5ngLNv1TxvUxt4cV1rGL5hj6KCesnDYUhd7oWgT11eZG7XnxHrnYeSvkzY7d2bhkJ7",
				xpub: "xpub68Gmy5EdvgibQVfPdqkBBCHxA5htiqg55crXYuXoQRKfDBFA1WEjWgP6LHhwBZeNK1VTsfTFUHCdrfp1bgwQ9xv5ski8PX9rL2dZXvgGDnw",
			},
			{
				path: "m/0'/1",
				xprv: "xprv9wTYmMFdV23N2TdNG573QoEsfRrWKQgWeibmLntzniatZvR9BmLnvSxqu53Kw1UmYPxLgboyZQaXwTCg8MSY3H2EU4pWcQDnRnrVA1xe8fs",
				xpub: "xpub6ASuArnXKPbfEwhqN6e3mwBcDTgzisQN1wXN9BJcM47sSikHjJf3UFHKkNAWbWMiGj7Wf5uMash7SyYq527Hqck2AxYysAA7xmALppuCkwQ",
			},
			{
				path: "m/0'/1/2'",
				xprv: "xprv9z4pot5VBttmtdRTWfWQmoH1taj2axGVzFqSb8C9xaxKymcFzXBDptWmT7FwuEzG3ryjH4ktypQSAewRiNMjANTtpgP4mLTj34bhnZX7UiM",
				xpub: "xpub6D4BDPcP2GT577Vvch3R8wDkScZWzQzMMUm3PWbmWvVJrZwQY4VUNgqFJPMM3No2dFDFGTsxxpG5uJh7n7epu4trkrX7x7DogT5Uv6fcLW5",
			},
			{
				path: "m/0'/1/2'/2",
				xprv: "xprvA2JDeKCSNNZky6uBCviVfJSKyQ1mDYahRjijr5idH2WwLsEd4Hsb2Tyh8RfQMuPh7f7RtyzTtdrbdqqsunu5Mm3wDvUAKRHSC34sJ7in334",
				xpub: "xpub6FHa3pjLCk84BayeJxFW2SP4XRrFd1JYnxeLeU8EqN3vDfZmbqBqaGJAyiLjTAwm6ZLRQUMv1ZACTj37sR62cfN7fe5JnJ7dh8zL4fiyLHV",
			},
			{
				path: "m/0'/1/2'/2/1000000000",
				xprv: "xprvA41z7zogVVwxVSgdKUHDy1SKmdb533PjDz7J6N6mV6uS3ze1ai8FHa8kmHScGpWmj4WggLyQjgPie1rFSruoUihUZREPSL39UNdE3BBDu76",
				xpub: "xpub6H1LXWLaKsWFhvm6RVpEL9P4KfRZSW7abD2ttkWP3SSQvnyA8FSVqNTEcYFgJS2UaFcxupHiYkro49S8yGasTvXEYBVPamhGW6cFJodrTHy",
			},
		},
	},
	{
		name: "vector 2",
		seed: "fffcf9f6f3f0edeae7e4e1dedbd8d5d2cfccc9c6c3c0bdbab7b4b1ae" +
			"aba8a5a29f9c999693908d8a8784817e7b7875726f6c696663605d5a" +
			"5754514e4b484542",
		steps: []vectorStep{
			{
				path: "m",
				xprv: "xprv9s21ZrQH143K31xYSDQpPDxsXRTUcvj2iNHm5NUtrGiGG5e2DtALGdso3pGz6ssrdK4PFmM8NSpSBHNqPqm55Qn3LqFtT2emdEXVYsCzC2U",
				xpub: "xpub661MyMwAqRbcFW31YEwpkMuc5THy2PSt5bDMsktWQcFF8syAmRUapSCGu8ED9W6oDMSgv6Zz8idoc4a6mr8BDzTJY47LJhkJ8UB7WEGuduB",
			},
			{
				path: "m/0",
				xprv: "xprv9vHkqa6EV4sPZHYqZznhT2NPtPCjKuDKGY38FBWLvgaDx45zo9WQRUT3dKYnjwih2yJD9mkrocEZXo1ex8G81dwSM1fwqWpWkeS3v86pgKt",
				xpub: "xpub69H7F5d8KSRgmmdJg2KhpAK8SR3DjMwAdkxj3ZuxV27CprR9LgpeyGmXUbC6wb7ERfvrnKZjXoUmmDznezpbZb7ap6r1D3tgFxHmwMkQTPH",
			},
			{
				path: "m/0/2147483647'",
				xprv: "xprv9wSp6B7kry3Vj9m1zSnLvN3xH8RdsPP1Mh7fAaR7aRLcQMKTR2vidYEeEg2mUCTAwCd6vnxVrcjfy2kRgVsFawNzmjuHc2YmYRmagcEPdU9",
				xpub: "xpub6ASAVgeehLbnwdqV6UKMHVzgqAG8Gr6riv3Fxxpj8ksbH9ebxaEyBLZ85ySDhKiLDBrQSARLq1uNRts8RuJiHjaDMBU4Zn9h8LZNnBC5y4a",
			},
			{
				path: "m/0/2147483647'/1",
				xprv: "xprv9zFnWC6h2cLgpmSA46vutJzBcfJ8yaJGg8cX1e5StJh45BBciYTRXSd25UEPVuesF9yog62tGAQtHjXajPPdbRCHuWS6T8XA2ECKADdw4Ef",
				xpub: "xpub6DF8uhdarytz3FWdA8TvFSvvAh8dP3283MY7p2V4SeE2wyWmG5mg5EwVvmdMVCQcoNJxGoWaU9DCWh89LojfZ537wTfunKau47EL2dhHKon",
			},
			{
				path: "m/0/2147483647'/1/2147483646'",
				xprv: "xprvA1RpRA33e1JQ7ifknakTFpgNXPmW2YvmhqLQYMmrj4xJXXWYpDPS3xz7iAxn8L39njGVyuoseXzU6rcxFLJ8HFsTjSyQbLYnMpCqE2VbFWc",
				xpub: "xpub6ERApfZwUNrhLCkDtcHTcxd75RbzS1ed54G1LkBUHQVHQKqhMkhgbmJbZRkrgZw4koxb5JaHWkY4ALHY2grBGRjaDMzQLcgJvLJuZZvRcEL",
			},
			{
				path: "m/0/2147483647'/1/2147483646'/2",
				xprv: "xprvA2nrNbFZABcdryreWet9Ea4LvTJcGsqrMzxHx98MMrotbir7yrKCEXw7nadnHM8Dq38EGfSh6dqA9QWTyefMLEcBYJUuekgW4BYPJcr9E7j",
				xpub: "xpub6FnCn6nSzZAw5Tw7cgR9bi15UV96gLZhjDstkXXxvCLsUXBGXPdSnLFbdpq8p9HmGsApME5hQTZ3emM2rnY5agb9rXpVGyy3bdW6EEgAtqt",
			},
		},
	},
	{
		// Vector 3 covers retention of leading zeros in private keys.
		name: "vector 3",
		seed: "4b381541583be4423346c643850da4b320e46a87ae3d2a4e6da11eba" +
			"819cd4acba45d239319ac14f863b8d5ab5a0d0c64d2e8a1e7d1457df" +
			"2e5a3c51c73235be",
		steps: []vectorStep{
			{
				path: "m",
				xprv: "xprv9s21ZrQH143K25QhxbucbDDuQ4naNntJRi4KUfWT7xo4EKsHt2QJDu7KXp1A3u7Bi1j8ph3EGsZ9Xvz9dGuVrtHHs7pXeTzjuxBrCmmhgC6",
				xpub: "xpub661MyMwAqRbcEZVB4dScxMAdx6d4nFc9nvyvH3v4gJL378CSRZiYmhRoP7mBy6gSPSCYk6SzXPTf3ND1cZAceL7SfJ1Z3GC8vBgp2epUt13",
			},
			{
				path: "m/0'",
				xprv: "xprv9uPDJpEQgRQfDcW7BkF7eTya6RPxXeJCqCJGHuCJ4GiRVLzkTXBAJMu2qaMWPrS7AANYqdq6vcBcBUdJCVVFceUvJFjaPdGZ2y9WACViL4L",
				xpub: "xpub68NZiKmJWnxxS6aaHmn81bvJeTESw724CRDs6HbuccFQN9Ku14VQrADWgqbhhTHBaohPX4CjNLf9fq9MYo6oDaPPLPxSb7gwQN3ih19Zm4Y",
			},
		},
	},
}

func mustDecodeHex(t require.TestingT, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

// TestBIP32Vectors derives every step of the reference vectors from the seed
// and checks both serializations, and that the serialized keys parse back.
func TestBIP32Vectors(t *testing.T) {
	t.Parallel()

	for _, v := range bip32Vectors {
		t.Run(v.name, func(t *testing.T) {
			t.Parallel()

			master, err := NewMasterFromBytes(
				mustDecodeHex(t, v.seed), &chaincfg.MainNetParams,
			)
			require.NoError(t, err)

			for _, step := range v.steps {
				path := hdpath.MustParse(step.path)

				key, err := master.DerivePath(path)
				require.NoError(t, err, step.path)
				require.Equal(t, step.xprv, key.Serialize(),
					step.path)
				require.Equal(t, step.xpub,
					key.Neuter().Serialize(), step.path)

				parsed, err := Parse(step.xprv)
				require.NoError(t, err)
				require.True(t, parsed.Equal(key), step.path)

				parsedPub, err := Parse(step.xpub)
				require.NoError(t, err)
				require.True(t, parsedPub.Equal(key.Neuter()))
				require.False(t, parsedPub.IsPrivate())
			}
		})
	}
}

// TestPublicDerivationFromXpub derives the last normal step of the vectors
// from the parent xpub.
func TestPublicDerivationFromXpub(t *testing.T) {
	t.Parallel()

	parent, err := Parse(bip32Vectors[0].steps[4].xpub)
	require.NoError(t, err)

	child, err := parent.Derive(hdpath.Normal(1000000000))
	require.NoError(t, err)
	require.Equal(t, bip32Vectors[0].steps[5].xpub, child.Serialize())

	_, err = parent.Derive(hdpath.Hardened(0))
	require.ErrorIs(t, err, ErrInvalidChildIndex)

	_, err = parent.ECPrivKey()
	require.ErrorIs(t, err, ErrNotPrivate)
	_, err = parent.PrivateKey()
	require.ErrorIs(t, err, ErrNotPrivate)
}

// TestZeroSeedFixture pins the master node of a seed of 64 zero bytes.
func TestZeroSeedFixture(t *testing.T) {
	t.Parallel()

	seed, err := keymaterial.SeedFromBytes(make([]byte, 64))
	require.NoError(t, err)

	master, err := NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	priv, err := master.PrivateKey()
	require.NoError(t, err)
	chainCode := master.ChainCode()

	require.Equal(t,
		"eafd15702fca3f80beb565e66f19e20bbad0a34b46bb12075cbf1c5d94bb27d2",
		hex.EncodeToString(priv.Expose()))
	require.Equal(t,
		"cda6a96b8a91317d82fa5c6353562cd530761cf1eec6e13cfa3858b0b130b0bd",
		hex.EncodeToString(chainCode[:]))
	require.Equal(t,
		"03669261fe20452fe6a03e625944c6a0523e6350b3ea8cbd37c9ca1ff97e3ac8bf",
		hex.EncodeToString(master.PublicKeyBytes()))

	require.Equal(t,
		"xprv9s21ZrQH143K477MQMSi4dxasP5XCVvthGJMSCNLMk7q311UwdpNaqhfqrZsz2Jy9rLWugNWbQfpAxBY86AXGeYa4yHWJozM1N1tyxefG6s",
		master.Serialize())

	testnet := master.WithNet(&chaincfg.TestNet3Params)
	require.Equal(t,
		"tprv8ZgxMBicQKsPevLt4vJDEHaaBWVjS1xu2pDUJcnnqicJpbkZw1A86b57m2jXzPhHXHsHumzGkmFcdojHFJWU5hpAbcVoyAiPvTmKRhfsvcF",
		testnet.Serialize())
	require.Equal(t,
		"tpubD6NzVbkrYhZ4YPNfxZxodhEgkY1fbM9oc7pFb8q6FzQhf61LZPyiH5gywAcrieNLZUmLNG7P6EmjbR43V1SiFRw5mUg4LdXHAYCGVPo8Dmh",
		testnet.Neuter().Serialize())

	parsed, err := Parse(testnet.Serialize())
	require.NoError(t, err)
	require.Equal(t, &chaincfg.TestNet3Params, parsed.Net())
}

// TestMetadata checks depth, child number and fingerprints along a path.
func TestMetadata(t *testing.T) {
	t.Parallel()

	master, err := NewMasterFromBytes(
		mustDecodeHex(t, bip32Vectors[0].seed), nil,
	)
	require.NoError(t, err)
	require.Equal(t, &chaincfg.MainNetParams, master.Net())
	require.Equal(t, uint8(0), master.Depth())
	require.Equal(t, [4]byte{}, master.ParentFingerprint())
	require.Equal(t, [4]byte{0x34, 0x42, 0x19, 0x3e}, master.Fingerprint())

	child, err := master.Derive(hdpath.Hardened(0))
	require.NoError(t, err)
	require.Equal(t, uint8(1), child.Depth())
	require.Equal(t, hdpath.Hardened(0), child.ChildNumber())
	require.Equal(t, master.Fingerprint(), child.ParentFingerprint())
	require.True(t, child.IsPrivate())

	pub, err := child.ECPubKey()
	require.NoError(t, err)
	priv, err := child.ECPrivKey()
	require.NoError(t, err)
	require.True(t, pub.IsEqual(priv.PubKey()))
}

// TestRedaction ensures private keys are never printed by fmt.
func TestRedaction(t *testing.T) {
	t.Parallel()

	master, err := NewMasterFromBytes(
		mustDecodeHex(t, bip32Vectors[0].seed), nil,
	)
	require.NoError(t, err)

	for _, verb := range []string{"%v", "%s", "%#v", "%x"} {
		out := fmt.Sprintf(verb, master)
		require.NotContains(t, out, "xprv")
		require.NotContains(t, out, "e8f32e72")
	}

	require.Equal(t, master.Neuter().Serialize(),
		fmt.Sprintf("%v", master.Neuter()))
}

// TestSeedLength checks the seed size bounds.
func TestSeedLength(t *testing.T) {
	t.Parallel()

	_, err := NewMasterFromBytes(make([]byte, MinSeedBytes-1), nil)
	require.ErrorIs(t, err, ErrInvalidSeedLen)

	_, err = NewMasterFromBytes(make([]byte, MaxSeedBytes+1), nil)
	require.ErrorIs(t, err, ErrInvalidSeedLen)
}

// TestDepthExceeded derives to the maximum depth and checks the next step
// fails, both stepwise and through DerivePath.
func TestDepthExceeded(t *testing.T) {
	t.Parallel()

	master, err := NewMasterFromBytes(
		mustDecodeHex(t, bip32Vectors[0].seed), nil,
	)
	require.NoError(t, err)

	components := make([]hdpath.ChildNumber, MaxDepth)
	for i := range components {
		components[i] = hdpath.Hardened(uint32(i))
	}

	deepest, err := master.DerivePath(hdpath.New(components...))
	require.NoError(t, err)
	require.Equal(t, uint8(MaxDepth), deepest.Depth())

	_, err = deepest.Derive(hdpath.Normal(0))
	require.ErrorIs(t, err, ErrDepthExceeded)

	tooLong := hdpath.New(append(components, 0)...)
	_, err = master.DerivePath(tooLong)
	require.ErrorIs(t, err, ErrDepthExceeded)

	child, err := master.Derive(0)
	require.NoError(t, err)
	_, err = child.DerivePath(hdpath.New(components...))
	require.ErrorIs(t, err, ErrDepthExceeded)
}

// TestDerivePathMaster checks deriving the empty path yields an independent
// copy of the receiver.
func TestDerivePathMaster(t *testing.T) {
	t.Parallel()

	master, err := NewMasterFromBytes(
		mustDecodeHex(t, bip32Vectors[0].seed), nil,
	)
	require.NoError(t, err)

	same, err := master.DerivePath(hdpath.Master())
	require.NoError(t, err)
	require.True(t, same.Equal(master))

	same.Zero()
	require.Equal(t, bip32Vectors[0].steps[0].xprv, master.Serialize())
}

// encodeRaw checksums and base58 encodes a raw payload.
func encodeRaw(payload []byte) string {
	sum := chainhash.DoubleHashB(payload)[:checksumLen]

	return base58.Encode(append(append([]byte{}, payload...), sum...))
}

// TestParseErrors covers every rejection of a serialized key.
func TestParseErrors(t *testing.T) {
	t.Parallel()

	valid := bip32Vectors[0].steps[1].xprv
	raw := base58.Decode(valid)[:serializedKeyLen]
	rawPub := base58.Decode(bip32Vectors[0].steps[1].xpub)[:serializedKeyLen]

	mutate := func(base []byte, f func(b []byte)) string {
		b := append([]byte{}, base...)
		f(b)

		return encodeRaw(b)
	}

	corruptChecksum := []byte(valid)
	if corruptChecksum[len(corruptChecksum)-1] == 'a' {
		corruptChecksum[len(corruptChecksum)-1] = 'b'
	} else {
		corruptChecksum[len(corruptChecksum)-1] = 'a'
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "not base58", input: "0OIl"},
		{name: "truncated", input: encodeRaw(raw[:77])},
		{name: "checksum", input: string(corruptChecksum)},
		{
			name: "unknown version",
			input: mutate(raw, func(b []byte) {
				copy(b, []byte{0xde, 0xad, 0xbe, 0xef})
			}),
		},
		{
			name: "master with fingerprint",
			input: mutate(raw, func(b []byte) {
				b[4] = 0
			}),
		},
		{
			name: "master with child number",
			input: mutate(raw, func(b []byte) {
				b[4] = 0
				copy(b[5:9], []byte{0, 0, 0, 0})
			}),
		},
		{
			name: "private key prefix",
			input: mutate(raw, func(b []byte) {
				b[45] = 0x01
			}),
		},
		{
			name: "private key zero",
			input: mutate(raw, func(b []byte) {
				copy(b[46:], make([]byte, 32))
			}),
		},
		{
			name: "private key above order",
			input: mutate(raw, func(b []byte) {
				copy(b[46:], mustDecodeHex(t, "ffffffffffffffffffffffff"+
					"fffffffebaaedce6af48a03bbfd25e8cd0"+
					"364141"))
			}),
		},
		{
			name: "public key prefix",
			input: mutate(rawPub, func(b []byte) {
				b[45] = 0x04
			}),
		},
		{
			name: "public key not on curve",
			input: mutate(rawPub, func(b []byte) {
				copy(b[46:], make([]byte, 32))
			}),
		},
		{
			name: "private version with public key",
			input: mutate(rawPub, func(b []byte) {
				copy(b, raw[:4])
			}),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(test.input)
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}

// TestParamsLookup checks version and name based network lookups.
func TestParamsLookup(t *testing.T) {
	t.Parallel()

	net, private, ok := ParamsForVersion(chaincfg.MainNetParams.HDPrivateKeyID)
	require.True(t, ok)
	require.True(t, private)
	require.Equal(t, &chaincfg.MainNetParams, net)

	net, private, ok = ParamsForVersion(chaincfg.TestNet3Params.HDPublicKeyID)
	require.True(t, ok)
	require.False(t, private)
	require.Equal(t, &chaincfg.TestNet3Params, net)

	_, _, ok = ParamsForVersion([4]byte{1, 2, 3, 4})
	require.False(t, ok)

	net, ok = ParamsForName("testnet")
	require.True(t, ok)
	require.Equal(t, &chaincfg.TestNet3Params, net)

	net, ok = ParamsForName("simnet")
	require.True(t, ok)
	require.Equal(t, &chaincfg.SimNetParams, net)

	_, ok = ParamsForName("moonnet")
	require.False(t, ok)
}

func drawPath(t *rapid.T, label string, maxLen int) hdpath.Path {
	raw := rapid.SliceOfN(rapid.Uint32(), 0, maxLen).Draw(t, label)

	comps := make([]hdpath.ChildNumber, len(raw))
	for i, r := range raw {
		comps[i] = hdpath.ChildNumber(r)
	}

	return hdpath.New(comps...)
}

func drawMaster(t *rapid.T) *ExtendedKey {
	seed := rapid.SliceOfN(rapid.Byte(), MinSeedBytes, MaxSeedBytes).
		Draw(t, "seed")

	master, err := NewMasterFromBytes(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	return master
}

// TestDeterminism checks repeated derivations yield identical keys.
func TestDeterminism(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		master := drawMaster(t)
		path := drawPath(t, "path", 6)

		a, err := master.DerivePath(path)
		require.NoError(t, err)
		b, err := master.DerivePath(path)
		require.NoError(t, err)

		require.True(t, a.Equal(b))
		require.Equal(t, a.Serialize(), b.Serialize())
	})
}

// TestComposability checks deriving a path in one go equals deriving a
// prefix and then the remaining suffix.
func TestComposability(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		master := drawMaster(t)
		prefix := drawPath(t, "prefix", 4)
		suffix := drawPath(t, "suffix", 4)
		full := prefix.Append(suffix)

		direct, err := master.DerivePath(full)
		require.NoError(t, err)

		mid, err := master.DerivePath(prefix)
		require.NoError(t, err)
		rest, ok := full.TrimPrefix(prefix)
		require.True(t, ok)

		viaPrefix, err := mid.DerivePath(rest)
		require.NoError(t, err)

		require.True(t, direct.Equal(viaPrefix))
	})
}

// TestPublicPrivateAgreement checks that neutering commutes with normal
// derivation.
func TestPublicPrivateAgreement(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		master := drawMaster(t)
		index := rapid.Uint32Range(0, hdpath.MaxIndex).Draw(t, "index")

		child, err := master.Derive(hdpath.Normal(index))
		require.NoError(t, err)

		pubChild, err := master.Neuter().Derive(hdpath.Normal(index))
		require.NoError(t, err)

		require.True(t, child.Neuter().Equal(pubChild))
	})
}

// TestMatchesHDKeychain compares serializations with the btcutil
// implementation along random paths.
func TestMatchesHDKeychain(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), MinSeedBytes, MaxSeedBytes).
			Draw(t, "seed")
		path := drawPath(t, "path", 5)

		ours, err := NewMasterFromBytes(seed, &chaincfg.MainNetParams)
		require.NoError(t, err)
		theirs, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
		require.NoError(t, err)

		for _, c := range path.Components() {
			ours, err = ours.Derive(c)
			require.NoError(t, err)
			theirs, err = theirs.Derive(c.Uint32())
			require.NoError(t, err)
		}

		require.Equal(t, theirs.String(), ours.Serialize())

		theirsPub, err := theirs.Neuter()
		require.NoError(t, err)
		require.Equal(t, theirsPub.String(), ours.Neuter().Serialize())
	})
}

// TestSerializeRoundTrip checks any derived key parses back to itself.
func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		master := drawMaster(t)
		key, err := master.DerivePath(drawPath(t, "path", 4))
		require.NoError(t, err)

		if rapid.Bool().Draw(t, "public") {
			key = key.Neuter()
		}

		parsed, err := Parse(key.Serialize())
		require.NoError(t, err)
		require.True(t, parsed.Equal(key))
	})
}

// TestDeriveSurvivesCollection checks that deriving and serializing from
// keys that are not referenced afterwards still uses the real key bytes.
func TestDeriveSurvivesCollection(t *testing.T) {
	vec := bip32Vectors[0]
	seed := mustDecodeHex(t, vec.seed)

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-quit:
				return
			default:
				runtime.GC()
			}
		}
	}()
	defer func() {
		close(quit)
		<-done
	}()

	for i := 0; i < 100; i++ {
		s, err := keymaterial.SeedFromBytes(append(seed,
			make([]byte, keymaterial.SeedSize-len(seed))...))
		require.NoError(t, err)
		_, err = NewMaster(s, nil)
		require.NoError(t, err)

		master, err := NewMasterFromBytes(seed, nil)
		require.NoError(t, err)
		child, err := master.Derive(hdpath.Hardened(0))
		require.NoError(t, err)
		require.Equal(t, vec.steps[1].xprv, child.Serialize())

		priv, err := child.ECPrivKey()
		require.NoError(t, err)
		pub, err := child.ECPubKey()
		require.NoError(t, err)
		require.True(t, pub.IsEqual(priv.PubKey()))
	}
}

// TestEqualNil checks Equal handles nil keys on either side.
func TestEqualNil(t *testing.T) {
	t.Parallel()

	master, err := NewMasterFromBytes(
		mustDecodeHex(t, bip32Vectors[0].seed), nil,
	)
	require.NoError(t, err)

	var nilKey *ExtendedKey
	require.False(t, master.Equal(nilKey))
	require.False(t, nilKey.Equal(master))
	require.True(t, nilKey.Equal(nil))
}
