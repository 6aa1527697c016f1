package keychain

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/hkd32/hdkey"
	"github.com/lightningnetwork/hkd32/hdpath"
)

// HDKeyRing is an implementation of both the KeyRing and SecretKeyRing
// interfaces backed by an in-memory extended private key. All keys are
// derived below m/1017'/coinType', so the whole ring can be restored from
// the root seed.
//
// The ring is safe for concurrent use. DeriveNextKey calls are serialized so
// that indexes are handed out in order. DeriveKey and DerivePrivKey only lock
// the branch cache.
type HDKeyRing struct {
	root     *hdkey.ExtendedKey
	coinType uint32

	// mu guards branches.
	mu sync.Mutex

	// branches caches m/1017'/coinType'/family'/0 per family.
	branches map[KeyFamily]*hdkey.ExtendedKey

	// nextMu guards nextIndex and is held across a whole DeriveNextKey
	// call. It is always taken before mu.
	nextMu sync.Mutex

	// nextIndex is the index DeriveNextKey hands out next per family.
	nextIndex map[KeyFamily]uint32
}

// NewHDKeyRing creates a new key ring rooted at root, which must be a private
// extended key, usually the master node of a seed.
func NewHDKeyRing(root *hdkey.ExtendedKey, coinType uint32) (*HDKeyRing,
	error) {

	if !root.IsPrivate() {
		return nil, fmt.Errorf("key ring root: %w", hdkey.ErrNotPrivate)
	}

	return &HDKeyRing{
		root:      root,
		coinType:  coinType,
		branches:  make(map[KeyFamily]*hdkey.ExtendedKey),
		nextIndex: make(map[KeyFamily]uint32),
	}, nil
}

// CoinType returns the coin type all keys are derived under.
func (h *HDKeyRing) CoinType() uint32 {
	return h.coinType
}

// branch returns the external branch key of the family, deriving and
// caching it on first use.
func (h *HDKeyRing) branch(keyFam KeyFamily) (*hdkey.ExtendedKey, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.branches[keyFam]; ok {
		return b, nil
	}

	path := FamilyPath(h.coinType, keyFam).Child(
		hdpath.Normal(externalBranch),
	)
	b, err := h.root.DerivePath(path)
	if err != nil {
		return nil, fmt.Errorf("unable to derive family %d: %w",
			keyFam, err)
	}

	log.Debugf("Derived branch %v for key family %d", path, keyFam)
	h.branches[keyFam] = b

	return b, nil
}

// deriveLocator returns the extended private key at keyLoc.
func (h *HDKeyRing) deriveLocator(keyLoc KeyLocator) (*hdkey.ExtendedKey,
	error) {

	if keyLoc.Index > hdpath.MaxIndex {
		return nil, fmt.Errorf("%w: index %d", hdkey.ErrInvalidChildIndex,
			keyLoc.Index)
	}

	b, err := h.branch(keyLoc.Family)
	if err != nil {
		return nil, err
	}

	return b.Derive(hdpath.Normal(keyLoc.Index))
}

// DeriveNextKey attempts to derive the *next* key within the key family
// (account in BIP43) specified. This method should return the next external
// child within this branch. The family's index only advances when the key
// was derived, so a failed call hands the same index to the next caller.
//
// NOTE: This is part of the keychain.KeyRing interface.
func (h *HDKeyRing) DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error) {
	h.nextMu.Lock()
	defer h.nextMu.Unlock()

	keyDesc, err := h.DeriveKey(KeyLocator{
		Family: keyFam,
		Index:  h.nextIndex[keyFam],
	})
	if err != nil {
		return KeyDescriptor{}, err
	}
	h.nextIndex[keyFam]++

	return keyDesc, nil
}

// DeriveKey attempts to derive an arbitrary key specified by the passed
// KeyLocator.
//
// NOTE: This is part of the keychain.KeyRing interface.
func (h *HDKeyRing) DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error) {
	key, err := h.deriveLocator(keyLoc)
	if err != nil {
		return KeyDescriptor{}, err
	}
	defer key.Zero()

	pubKey, err := key.ECPubKey()
	if err != nil {
		return KeyDescriptor{}, err
	}

	return KeyDescriptor{
		KeyLocator: keyLoc,
		PubKey:     pubKey,
	}, nil
}

// DerivePrivKey attempts to derive the private key that corresponds to the
// passed key descriptor. If only the public key and family are known, the
// first MaxKeyRangeScan indexes of the family are searched.
//
// NOTE: This is part of the keychain.SecretKeyRing interface.
func (h *HDKeyRing) DerivePrivKey(keyDesc KeyDescriptor) (*btcec.PrivateKey,
	error) {

	// With no public key, or a non-zero index, we know exactly which key
	// to derive.
	if keyDesc.PubKey == nil || keyDesc.Index != 0 {
		key, err := h.deriveLocator(keyDesc.KeyLocator)
		if err != nil {
			return nil, err
		}
		defer key.Zero()

		return key.ECPrivKey()
	}

	b, err := h.branch(keyDesc.Family)
	if err != nil {
		return nil, err
	}

	for i := 0; i < MaxKeyRangeScan; i++ {
		key, err := b.Derive(hdpath.Normal(uint32(i)))
		if err != nil {
			// Skip the rare index that yields no valid key.
			continue
		}

		pubKey, err := key.ECPubKey()
		if err != nil || !pubKey.IsEqual(keyDesc.PubKey) {
			key.Zero()
			continue
		}

		privKey, err := key.ECPrivKey()
		key.Zero()

		return privKey, err
	}

	log.Debugf("Public key not found within %d keys of family %d",
		MaxKeyRangeScan, keyDesc.Family)

	return nil, ErrCannotDerivePrivKey
}

// ECDH performs a scalar multiplication (ECDH-like operation) between the
// target key descriptor and remote public key. The output returned will be
// the sha256 of the resulting shared point serialized in compressed format.
//
// NOTE: This is part of the keychain.ECDHRing interface.
func (h *HDKeyRing) ECDH(keyDesc KeyDescriptor,
	pub *btcec.PublicKey) ([32]byte, error) {

	privKey, err := h.DerivePrivKey(keyDesc)
	if err != nil {
		return [32]byte{}, err
	}
	defer privKey.Zero()

	return (&PrivKeyECDH{PrivKey: privKey}).ECDH(pub)
}

// digest hashes msg once or twice with SHA256.
func digest(msg []byte, doubleHash bool) []byte {
	if doubleHash {
		return chainhash.DoubleHashB(msg)
	}

	return chainhash.HashB(msg)
}

// SignMessage signs the given message, single or double SHA256 hashing it
// first, with the private key described in the key locator.
//
// NOTE: This is part of the keychain.MessageSignerRing interface.
func (h *HDKeyRing) SignMessage(keyLoc KeyLocator, msg []byte,
	doubleHash bool) (*ecdsa.Signature, error) {

	privKey, err := h.DerivePrivKey(KeyDescriptor{KeyLocator: keyLoc})
	if err != nil {
		return nil, err
	}
	defer privKey.Zero()

	return ecdsa.Sign(privKey, digest(msg, doubleHash)), nil
}

// SignMessageCompact signs the given message, single or double SHA256
// hashing it first, with the private key described in the key locator and
// returns the signature in the compact, public key recoverable format.
//
// NOTE: This is part of the keychain.MessageSignerRing interface.
func (h *HDKeyRing) SignMessageCompact(keyLoc KeyLocator, msg []byte,
	doubleHash bool) ([]byte, error) {

	privKey, err := h.DerivePrivKey(KeyDescriptor{KeyLocator: keyLoc})
	if err != nil {
		return nil, err
	}
	defer privKey.Zero()

	return ecdsa.SignCompact(privKey, digest(msg, doubleHash), true), nil
}

// SignMessageSchnorr signs the given message with a BIP340 signature. When
// tag is set the tagged hash of the message is signed and doubleHash is
// ignored.
//
// NOTE: This is part of the keychain.MessageSignerRing interface.
func (h *HDKeyRing) SignMessageSchnorr(keyLoc KeyLocator, msg []byte,
	doubleHash bool, tag []byte) (*schnorr.Signature, error) {

	privKey, err := h.DerivePrivKey(KeyDescriptor{KeyLocator: keyLoc})
	if err != nil {
		return nil, err
	}
	defer privKey.Zero()

	var hash []byte
	if len(tag) > 0 {
		hash = chainhash.TaggedHash(tag, msg)[:]
	} else {
		hash = digest(msg, doubleHash)
	}

	return schnorr.Sign(privKey, hash)
}

// A compile time check to ensure that HDKeyRing implements the
// SecretKeyRing interface.
var _ SecretKeyRing = (*HDKeyRing)(nil)
