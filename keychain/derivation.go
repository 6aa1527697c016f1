package keychain

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/lightningnetwork/hkd32/hdpath"
)

const (
	// BIP0043Purpose is the purpose level of every key handed out by a key
	// ring. Below it sit the coin type, the key family as the BIP43
	// account, the external branch 0 and finally the key index.
	BIP0043Purpose = 1017

	// CoinTypeBitcoin is the BIP44 coin type of Bitcoin mainnet.
	CoinTypeBitcoin uint32 = 0

	// CoinTypeTestnet is the BIP44 coin type shared by all test networks.
	CoinTypeTestnet uint32 = 1

	// CoinTypeLitecoin is the BIP44 coin type of Litecoin.
	CoinTypeLitecoin uint32 = 2

	// externalBranch is the only branch below a key family.
	externalBranch = 0
)

var (
	// MaxKeyRangeScan is the maximum number of keys that we'll attempt to
	// scan with if a caller knows the public key, but not the KeyLocator
	// and wishes to derive a private key.
	MaxKeyRangeScan = 100000

	// ErrCannotDerivePrivKey is returned when DerivePrivKey is unable to
	// derive a private key given only the public key and target key
	// family.
	ErrCannotDerivePrivKey = errors.New("unable to derive private key")
)

// KeyFamily is a distinct branch of the key tree, mapped to a hardened BIP43
// account:
//
//   - m/1017'/coinType'/keyFamily'/0/index
type KeyFamily uint32

const (
	// KeyFamilyMultiSig are keys to be used within multi-sig scripts.
	KeyFamilyMultiSig KeyFamily = 0

	// KeyFamilyRevocationBase are revocation basepoints.
	KeyFamilyRevocationBase KeyFamily = 1

	// KeyFamilyHtlcBase are HTLC basepoints.
	KeyFamilyHtlcBase KeyFamily = 2

	// KeyFamilyPaymentBase are payment basepoints.
	KeyFamilyPaymentBase KeyFamily = 3

	// KeyFamilyDelayBase are delayed payment basepoints.
	KeyFamilyDelayBase KeyFamily = 4

	// KeyFamilyRevocationRoot holds the roots of revocation trees.
	KeyFamilyRevocationRoot KeyFamily = 5

	// KeyFamilyNodeKey holds identity keys. The first key of the family
	// is the default node key.
	KeyFamilyNodeKey KeyFamily = 6

	// KeyFamilyBaseEncryption holds keys used to encrypt data at rest,
	// such as backups.
	KeyFamilyBaseEncryption KeyFamily = 7

	// KeyFamilyTowerSession holds short lived session keys.
	KeyFamilyTowerSession KeyFamily = 8

	// KeyFamilyTowerID holds the identity keys of watchtowers.
	KeyFamilyTowerID KeyFamily = 9
)

// VersionZeroKeyFamilies lists every known key family.
var VersionZeroKeyFamilies = []KeyFamily{
	KeyFamilyMultiSig,
	KeyFamilyRevocationBase,
	KeyFamilyHtlcBase,
	KeyFamilyPaymentBase,
	KeyFamilyDelayBase,
	KeyFamilyRevocationRoot,
	KeyFamilyNodeKey,
	KeyFamilyBaseEncryption,
	KeyFamilyTowerSession,
	KeyFamilyTowerID,
}

// FamilyPath returns the path of the key family account for coinType,
// m/1017'/coinType'/family'.
func FamilyPath(coinType uint32, family KeyFamily) hdpath.Path {
	return hdpath.New(
		hdpath.Hardened(BIP0043Purpose),
		hdpath.Hardened(coinType),
		hdpath.Hardened(uint32(family)),
	)
}

// KeyLocator is a two-tuple that can be used to derive any key that has ever
// been handed out by a key ring.
type KeyLocator struct {
	// Family is the family of key being identified.
	Family KeyFamily

	// Index is the precise index of the key being identified.
	Index uint32
}

// IsEmpty returns true if a KeyLocator is "empty". This may be the case where
// we learn of a key from a remote party for a contract, but don't know the
// precise details of its derivation (as we don't know the private key!).
func (k KeyLocator) IsEmpty() bool {
	return k.Family == 0 && k.Index == 0
}

// Path returns the full derivation path of the located key for coinType.
func (k KeyLocator) Path(coinType uint32) hdpath.Path {
	return FamilyPath(coinType, k.Family).Append(hdpath.New(
		hdpath.Normal(externalBranch), hdpath.Normal(k.Index),
	))
}

// KeyDescriptor wraps a KeyLocator and also optionally includes a public key.
// Either the KeyLocator must be non-empty, or the public key pointer be
// non-nil.
type KeyDescriptor struct {
	// KeyLocator is the internal KeyLocator of the descriptor.
	KeyLocator

	// PubKey is an optional public key that fully describes a target key.
	// If this is nil, the KeyLocator MUST NOT be empty.
	PubKey *btcec.PublicKey
}

// KeyRing hands out public keys of the key families. All of its derivation
// is public derivation below the hardened family account, so a ring holding
// only the account xpubs could serve it.
type KeyRing interface {
	// DeriveNextKey attempts to derive the *next* key within the key
	// family (account in BIP43) specified. This method should return the
	// next external child within this branch.
	DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error)

	// DeriveKey attempts to derive an arbitrary key specified by the
	// passed KeyLocator.
	DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error)
}

// SecretKeyRing is a KeyRing that can also produce private keys and use them
// for ECDH and message signing.
type SecretKeyRing interface {
	KeyRing

	ECDHRing

	MessageSignerRing

	// DerivePrivKey attempts to derive the private key that corresponds to
	// the passed key descriptor.  If the public key is set, then this
	// method will perform an in-order scan over the key set, with a max of
	// MaxKeyRangeScan keys. In order for this to work, the caller MUST set
	// the KeyFamily within the partially populated KeyLocator.
	DerivePrivKey(keyDesc KeyDescriptor) (*btcec.PrivateKey, error)
}

// MessageSignerRing is an interface that abstracts away basic low-level ECDSA
// signing on keys within a key ring.
type MessageSignerRing interface {
	// SignMessage signs the given message, single or double SHA256 hashing
	// it first, with the private key described in the key locator.
	SignMessage(keyLoc KeyLocator, msg []byte,
		doubleHash bool) (*ecdsa.Signature, error)

	// SignMessageCompact signs the given message, single or double SHA256
	// hashing it first, with the private key described in the key locator
	// and returns the signature in the compact, public key recoverable
	// format.
	SignMessageCompact(keyLoc KeyLocator, msg []byte,
		doubleHash bool) ([]byte, error)

	// SignMessageSchnorr signs the BIP340 tagged hash of the message when
	// a tag is given, or its single or double SHA256 otherwise.
	SignMessageSchnorr(keyLoc KeyLocator, msg []byte, doubleHash bool,
		tag []byte) (*schnorr.Signature, error)
}

// SingleKeyMessageSigner is an abstraction interface that hides the
// implementation of the low-level ECDSA signing operations by wrapping a
// single, specific private key.
type SingleKeyMessageSigner interface {
	// PubKey returns the public key of the wrapped private key.
	PubKey() *btcec.PublicKey

	// KeyLocator returns the locator that describes the wrapped private
	// key.
	KeyLocator() KeyLocator

	// SignMessage signs the given message, single or double SHA256 hashing
	// it first, with the wrapped private key.
	SignMessage(message []byte, doubleHash bool) (*ecdsa.Signature, error)

	// SignMessageCompact signs the given message, single or double SHA256
	// hashing it first, with the wrapped private key and returns the
	// signature in the compact, public key recoverable format.
	SignMessageCompact(message []byte, doubleHash bool) ([]byte, error)
}

// ECDHRing is an interface that abstracts away basic low-level ECDH shared key
// generation on keys within a key ring.
type ECDHRing interface {
	// ECDH performs a scalar multiplication (ECDH-like operation) between
	// the target key descriptor and remote public key. The output
	// returned will be the sha256 of the resulting shared point serialized
	// in compressed format. If k is our private key, and P is the public
	// key, we perform the following operation:
	//
	//  sx := k*P
	//  s := sha256(sx.SerializeCompressed())
	ECDH(keyDesc KeyDescriptor, pubKey *btcec.PublicKey) ([32]byte, error)
}

// SingleKeyECDH is an abstraction interface that hides the implementation of an
// ECDH operation by wrapping a single, specific private key.
type SingleKeyECDH interface {
	// PubKey returns the public key of the wrapped private key.
	PubKey() *btcec.PublicKey

	// ECDH performs a scalar multiplication (ECDH-like operation) between
	// the wrapped private key and remote public key. The output returned
	// will be the sha256 of the resulting shared point serialized in
	// compressed format.
	ECDH(pubKey *btcec.PublicKey) ([32]byte, error)
}
