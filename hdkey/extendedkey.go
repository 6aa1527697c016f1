// Package hdkey implements BIP32 extended keys over secp256k1, and a
// symmetric, hardened-only variant of the same hierarchy.
package hdkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/hkd32/ckd"
	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/lightningnetwork/hkd32/zero"
)

const (
	// MinSeedBytes is the minimum number of bytes allowed for a seed to
	// a master node.
	MinSeedBytes = 16

	// MaxSeedBytes is the maximum number of bytes allowed for a seed to
	// a master node.
	MaxSeedBytes = keymaterial.SeedSize

	// MaxDepth is the deepest level a key can be at, as the depth is
	// serialized as a single byte.
	MaxDepth = 255

	// serializedKeyLen is the length of a serialized public or private
	// extended key.
	serializedKeyLen = 4 + 1 + 4 + 4 + 32 + 33

	checksumLen = 4
)

var (
	// masterKey is the HMAC key used to turn a seed into the master node.
	masterKey = []byte("Bitcoin seed")

	// curve is the elliptic curve adapter used for every asymmetric
	// derivation step.
	curve ckd.Curve = ckd.Secp256k1{}
)

var (
	// ErrDepthExceeded is returned when a derivation would produce a key
	// deeper than MaxDepth.
	ErrDepthExceeded = errors.New("maximum derivation depth exceeded")

	// ErrInvalidChildIndex is returned when a hardened child is requested
	// from a public key, or a normal child from a symmetric key.
	ErrInvalidChildIndex = ckd.ErrInvalidChildIndex

	// ErrInvalidKey is returned when a derivation step does not yield a
	// usable key. The caller should skip to the next index.
	ErrInvalidKey = ckd.ErrInvalidKey

	// ErrDecode is wrapped by every failure to parse a serialized key.
	ErrDecode = errors.New("malformed extended key")

	// ErrNotPrivate is returned when private key material is requested
	// from a public extended key.
	ErrNotPrivate = errors.New("extended key is not private")

	// ErrInvalidSeedLen is returned when the seed length is not between
	// MinSeedBytes and MaxSeedBytes.
	ErrInvalidSeedLen = fmt.Errorf("the recommended seed length is "+
		"between %d and %d bytes", MinSeedBytes, MaxSeedBytes)
)

// ExtendedKey is a node of a BIP32 hierarchy: a private or public key with
// its chain code and position metadata. Values are immutable; every
// derivation returns a new key.
type ExtendedKey struct {
	net *chaincfg.Params

	// priv is nil for public keys.
	priv *keymaterial.KeyMaterial

	// pub is the compressed public key, always set.
	pub []byte

	chainCode ckd.ChainCode
	parentFP  [4]byte
	depth     uint8
	childNum  hdpath.ChildNumber
}

// NewMaster creates the master node of the hierarchy defined by seed.
func NewMaster(seed *keymaterial.Seed, net *chaincfg.Params) (*ExtendedKey,
	error) {

	master, err := NewMasterFromBytes(seed.Expose(), net)
	runtime.KeepAlive(seed)

	return master, err
}

// NewMasterFromBytes is like NewMaster but accepts any seed between
// MinSeedBytes and MaxSeedBytes long, as allowed by BIP32. A nil net selects
// mainnet.
func NewMasterFromBytes(seed []byte, net *chaincfg.Params) (*ExtendedKey,
	error) {

	if net == nil {
		net = &chaincfg.MainNetParams
	}

	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, ErrInvalidSeedLen
	}

	il, ir := ckd.Step(masterKey, seed)
	defer zero.Array32(&il)

	pub, err := curve.PublicKey(il[:])
	if err != nil {
		return nil, fmt.Errorf("unusable seed: %w", err)
	}

	log.Debugf("Created %v master key", net.Name)

	return &ExtendedKey{
		net:       net,
		priv:      keymaterial.FromArray(&il),
		pub:       pub,
		chainCode: ir,
	}, nil
}

// Derive returns the child at c. Private keys can derive any child, public
// keys only normal children.
func (k *ExtendedKey) Derive(c hdpath.ChildNumber) (*ExtendedKey, error) {
	if k.depth == MaxDepth {
		return nil, fmt.Errorf("%w: cannot derive past depth %d",
			ErrDepthExceeded, MaxDepth)
	}

	child := &ExtendedKey{
		net:      k.net,
		parentFP: k.Fingerprint(),
		depth:    k.depth + 1,
		childNum: c,
	}

	if k.priv == nil {
		pub, chainCode, err := ckd.DeriveChildPublic(
			curve, k.pub, &k.chainCode, c.Uint32(),
		)
		if err != nil {
			return nil, err
		}

		child.pub = pub
		child.chainCode = chainCode

		return child, nil
	}

	priv, chainCode, err := ckd.DeriveChild(
		curve, k.priv.Expose(), &k.chainCode, c.Uint32(),
	)
	runtime.KeepAlive(k.priv)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(priv)

	child.priv, err = keymaterial.FromBytes(priv)
	if err != nil {
		return nil, err
	}

	child.pub, err = curve.PublicKey(priv)
	if err != nil {
		child.Zero()
		return nil, err
	}
	child.chainCode = chainCode

	log.Tracef("Derived child %v at depth %d", c, child.depth)

	return child, nil
}

// DerivePath derives every component of p in order, starting from k. The
// intermediate keys are wiped, and no partial result is returned on error.
func (k *ExtendedKey) DerivePath(p hdpath.Path) (*ExtendedKey, error) {
	if int(k.depth)+p.Len() > MaxDepth {
		return nil, fmt.Errorf("%w: path of %d components from depth "+
			"%d", ErrDepthExceeded, p.Len(), k.depth)
	}

	current := k
	for _, c := range p.Components() {
		next, err := current.Derive(c)
		if current != k {
			current.Zero()
		}
		if err != nil {
			return nil, fmt.Errorf("derive %v: %w", p, err)
		}

		current = next
	}

	if current == k {
		return k.clone(), nil
	}

	return current, nil
}

func (k *ExtendedKey) clone() *ExtendedKey {
	c := *k
	c.pub = bytes.Clone(k.pub)
	if k.priv != nil {
		c.priv = k.priv.Clone()
	}

	return &c
}

// Neuter returns the public version of k. Public keys are returned as a
// copy.
func (k *ExtendedKey) Neuter() *ExtendedKey {
	c := *k
	c.priv = nil
	c.pub = bytes.Clone(k.pub)

	return &c
}

// WithNet returns a copy of k that serializes with the version bytes of net.
func (k *ExtendedKey) WithNet(net *chaincfg.Params) *ExtendedKey {
	c := k.clone()
	c.net = net

	return c
}

// Net returns the network the key serializes for.
func (k *ExtendedKey) Net() *chaincfg.Params {
	return k.net
}

// IsPrivate reports whether k holds a private key.
func (k *ExtendedKey) IsPrivate() bool {
	return k.priv != nil
}

// Depth returns the number of derivation steps from the master node.
func (k *ExtendedKey) Depth() uint8 {
	return k.depth
}

// ChildNumber returns the child number k was derived at. It is zero for the
// master node.
func (k *ExtendedKey) ChildNumber() hdpath.ChildNumber {
	return k.childNum
}

// ParentFingerprint returns the fingerprint of the parent key, or zero for
// the master node.
func (k *ExtendedKey) ParentFingerprint() [4]byte {
	return k.parentFP
}

// Fingerprint returns the first four bytes of HASH160 of the compressed
// public key, which children record as their parent fingerprint.
func (k *ExtendedKey) Fingerprint() [4]byte {
	var fp [4]byte
	copy(fp[:], btcutil.Hash160(k.pub))

	return fp
}

// ChainCode returns the chain code.
func (k *ExtendedKey) ChainCode() ckd.ChainCode {
	return k.chainCode
}

// PublicKeyBytes returns the compressed public key.
func (k *ExtendedKey) PublicKeyBytes() []byte {
	return bytes.Clone(k.pub)
}

// ECPubKey returns the public key.
func (k *ExtendedKey) ECPubKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(k.pub)
}

// ECPrivKey returns the private key. It fails for public keys.
func (k *ExtendedKey) ECPrivKey() (*btcec.PrivateKey, error) {
	if k.priv == nil {
		return nil, ErrNotPrivate
	}

	privKey, _ := btcec.PrivKeyFromBytes(k.priv.Expose())
	runtime.KeepAlive(k.priv)

	return privKey, nil
}

// PrivateKey returns a copy of the private key as key material. It fails for
// public keys.
func (k *ExtendedKey) PrivateKey() (*keymaterial.KeyMaterial, error) {
	if k.priv == nil {
		return nil, ErrNotPrivate
	}

	return k.priv.Clone(), nil
}

// Zero wipes the private key, if any. The key must not be used afterwards.
func (k *ExtendedKey) Zero() {
	if k.priv != nil {
		k.priv.Zero()
	}
	zero.Bytes(k.chainCode[:])
}

// Equal reports whether both keys serialize identically.
func (k *ExtendedKey) Equal(o *ExtendedKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	if k.IsPrivate() != o.IsPrivate() {
		return false
	}
	if k.IsPrivate() && !k.priv.Equal(o.priv) {
		return false
	}

	return k.net == o.net && bytes.Equal(k.pub, o.pub) &&
		k.chainCode == o.chainCode && k.parentFP == o.parentFP &&
		k.depth == o.depth && k.childNum == o.childNum
}

func (k *ExtendedKey) version() [4]byte {
	if k.priv != nil {
		return k.net.HDPrivateKeyID
	}

	return k.net.HDPublicKeyID
}

// Serialize returns the Base58Check encoding of the key, e.g. an xprv or
// xpub string. For private keys the result contains the secret.
func (k *ExtendedKey) Serialize() string {
	payload := make([]byte, 0, serializedKeyLen+checksumLen)
	version := k.version()
	payload = append(payload, version[:]...)
	payload = append(payload, k.depth)
	payload = append(payload, k.parentFP[:]...)
	payload = binary.BigEndian.AppendUint32(payload, k.childNum.Uint32())
	payload = append(payload, k.chainCode[:]...)
	if k.priv != nil {
		payload = append(payload, 0x00)
		payload = append(payload, k.priv.Expose()...)
		runtime.KeepAlive(k.priv)
	} else {
		payload = append(payload, k.pub...)
	}
	defer zero.Bytes(payload)

	checksum := chainhash.DoubleHashB(payload)[:checksumLen]
	payload = append(payload, checksum...)

	return base58.Encode(payload)
}

// String returns the serialized form of public keys. Private keys are
// redacted; use Serialize to export them.
func (k *ExtendedKey) String() string {
	if k.priv != nil {
		return "ExtendedKey[REDACTED]"
	}

	return k.Serialize()
}

// GoString is the same as String.
func (k *ExtendedKey) GoString() string {
	return k.String()
}

// Parse decodes a Base58Check serialized extended key.
func Parse(s string) (*ExtendedKey, error) {
	decoded := base58.Decode(s)
	defer zero.Bytes(decoded)

	if len(decoded) != serializedKeyLen+checksumLen {
		return nil, fmt.Errorf("%w: invalid length %d", ErrDecode,
			len(decoded))
	}

	payload := decoded[:serializedKeyLen]
	checksum := decoded[serializedKeyLen:]
	expected := chainhash.DoubleHashB(payload)[:checksumLen]
	if !bytes.Equal(checksum, expected) {
		return nil, fmt.Errorf("%w: bad checksum", ErrDecode)
	}

	var version [4]byte
	copy(version[:], payload[:4])
	net, isPrivate, ok := ParamsForVersion(version)
	if !ok {
		return nil, fmt.Errorf("%w: unknown version %x", ErrDecode,
			version)
	}

	childNum := binary.BigEndian.Uint32(payload[9:13])
	k := &ExtendedKey{
		net:      net,
		depth:    payload[4],
		childNum: hdpath.ChildNumber(childNum),
	}
	copy(k.parentFP[:], payload[5:9])
	copy(k.chainCode[:], payload[13:45])
	keyData := payload[45:]

	if k.depth == 0 && (k.parentFP != [4]byte{} || k.childNum != 0) {
		return nil, fmt.Errorf("%w: master key with parent "+
			"fingerprint or child number", ErrDecode)
	}

	if !isPrivate {
		if keyData[0] != 0x02 && keyData[0] != 0x03 {
			return nil, fmt.Errorf("%w: invalid public key prefix",
				ErrDecode)
		}
		if _, err := btcec.ParsePubKey(keyData); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		k.pub = bytes.Clone(keyData)

		return k, nil
	}

	if keyData[0] != 0x00 {
		return nil, fmt.Errorf("%w: invalid private key prefix",
			ErrDecode)
	}

	pub, err := curve.PublicKey(keyData[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	k.priv, err = keymaterial.FromBytes(keyData[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	k.pub = pub

	return k, nil
}
