package ckd

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Curve is the elliptic curve adapter used by asymmetric derivation. Keys
// are passed in their serialized forms: 32-byte big endian scalars for
// private keys and compressed points for public keys.
type Curve interface {
	// PublicKey returns the compressed public key of priv.
	PublicKey(priv []byte) ([]byte, error)

	// AddPrivate returns (tweak + parent) mod n.
	AddPrivate(tweak *[KeySize]byte, parent []byte) ([]byte, error)

	// AddPublic returns tweak*G + parent.
	AddPublic(tweak *[KeySize]byte, parentPub []byte) ([]byte, error)
}

// Secp256k1 is the Curve used by BIP32.
type Secp256k1 struct{}

// A compile time check to ensure Secp256k1 implements the Curve interface.
var _ Curve = (*Secp256k1)(nil)

// parseTweak loads the left half of an HMAC output as a scalar. Values that
// are not below the group order are rejected.
func parseTweak(tweak *[KeySize]byte) (*secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	if overflow := s.SetBytes(tweak); overflow != 0 {
		s.Zero()
		return nil, fmt.Errorf("%w: tweak not below curve order",
			ErrInvalidKey)
	}

	return &s, nil
}

// parseScalar loads a 32-byte big endian scalar, rejecting values that are
// zero or not below the group order.
func parseScalar(b []byte) (*secp256k1.ModNScalar, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: scalar must be %d bytes",
			ErrInvalidKey, KeySize)
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow {
		s.Zero()
		return nil, fmt.Errorf("%w: scalar not below curve order",
			ErrInvalidKey)
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidKey)
	}

	return &s, nil
}

// PublicKey returns the compressed public key of priv.
func (Secp256k1) PublicKey(priv []byte) ([]byte, error) {
	k, err := parseScalar(priv)
	if err != nil {
		return nil, err
	}

	defer k.Zero()

	privKey := btcec.PrivKeyFromScalar(k)
	defer privKey.Zero()

	return privKey.PubKey().SerializeCompressed(), nil
}

// AddPrivate returns (tweak + parent) mod n, failing if the tweak is not
// below n or the sum is zero.
func (Secp256k1) AddPrivate(tweak *[KeySize]byte,
	parent []byte) ([]byte, error) {

	t, err := parseTweak(tweak)
	if err != nil {
		return nil, err
	}
	defer t.Zero()

	p, err := parseScalar(parent)
	if err != nil {
		return nil, err
	}
	defer p.Zero()

	t.Add(p)
	if t.IsZero() {
		return nil, fmt.Errorf("%w: child key is zero", ErrInvalidKey)
	}

	child := t.Bytes()

	return child[:], nil
}

// AddPublic returns the compressed encoding of tweak*G + parent, failing if
// the tweak is not below n or the result is the point at infinity.
func (Secp256k1) AddPublic(tweak *[KeySize]byte,
	parentPub []byte) ([]byte, error) {

	t, err := parseTweak(tweak)
	if err != nil {
		return nil, err
	}
	defer t.Zero()

	pub, err := btcec.ParsePubKey(parentPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var tweakPoint, parentPoint, sum btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(t, &tweakPoint)
	pub.AsJacobian(&parentPoint)
	btcec.AddNonConst(&tweakPoint, &parentPoint, &sum)

	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, fmt.Errorf("%w: child key is the point at "+
			"infinity", ErrInvalidKey)
	}

	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y).SerializeCompressed(), nil
}
