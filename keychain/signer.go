package keychain

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// PubKeyECDH performs ECDH with a single key of a ring without holding its
// private key.
type PubKeyECDH struct {
	keyDesc KeyDescriptor
	ecdh    ECDHRing
}

// NewPubKeyECDH wraps the given key of the key ring so it adheres to the
// SingleKeyECDH interface.
func NewPubKeyECDH(keyDesc KeyDescriptor, ecdh ECDHRing) *PubKeyECDH {
	return &PubKeyECDH{
		keyDesc: keyDesc,
		ecdh:    ecdh,
	}
}

// PubKey returns the public key of the wrapped key.
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PubKeyECDH) PubKey() *btcec.PublicKey {
	return p.keyDesc.PubKey
}

// ECDH returns sha256(k*P) where k is the wrapped key.
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PubKeyECDH) ECDH(pubKey *btcec.PublicKey) ([32]byte, error) {
	return p.ecdh.ECDH(p.keyDesc, pubKey)
}

// PrivKeyECDH is a SingleKeyECDH over a private key held in memory.
type PrivKeyECDH struct {
	// PrivKey is the private key that is used for the ECDH operation.
	PrivKey *btcec.PrivateKey
}

// PubKey returns the public key of the wrapped private key.
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PrivKeyECDH) PubKey() *btcec.PublicKey {
	return p.PrivKey.PubKey()
}

// ECDH multiplies pub by the wrapped private key and returns the sha256 of
// the compressed result:
//
//	sx := k*P
//	s := sha256(sx.SerializeCompressed())
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PrivKeyECDH) ECDH(pub *btcec.PublicKey) ([32]byte, error) {
	var pubJacobian, s btcec.JacobianPoint
	pub.AsJacobian(&pubJacobian)

	btcec.ScalarMultNonConst(&p.PrivKey.Key, &pubJacobian, &s)
	s.ToAffine()
	sPubKey := btcec.NewPublicKey(&s.X, &s.Y)

	return sha256.Sum256(sPubKey.SerializeCompressed()), nil
}

// PubKeyMessageSigner signs with a single key of a ring, identified by its
// locator.
type PubKeyMessageSigner struct {
	keyLoc KeyLocator
	pubKey *btcec.PublicKey
	signer MessageSignerRing
}

// NewPubKeyMessageSigner wraps the key at keyLoc, whose public key is
// pubKey, so it adheres to the SingleKeyMessageSigner interface.
func NewPubKeyMessageSigner(pubKey *btcec.PublicKey, keyLoc KeyLocator,
	signer MessageSignerRing) *PubKeyMessageSigner {

	return &PubKeyMessageSigner{
		keyLoc: keyLoc,
		pubKey: pubKey,
		signer: signer,
	}
}

// PubKey returns the public key of the wrapped key.
func (p *PubKeyMessageSigner) PubKey() *btcec.PublicKey {
	return p.pubKey
}

// KeyLocator returns the locator of the wrapped key.
func (p *PubKeyMessageSigner) KeyLocator() KeyLocator {
	return p.keyLoc
}

// SignMessage signs message through the ring.
func (p *PubKeyMessageSigner) SignMessage(message []byte,
	doubleHash bool) (*ecdsa.Signature, error) {

	return p.signer.SignMessage(p.keyLoc, message, doubleHash)
}

// SignMessageCompact signs message through the ring in the recoverable
// compact format.
func (p *PubKeyMessageSigner) SignMessageCompact(msg []byte,
	doubleHash bool) ([]byte, error) {

	return p.signer.SignMessageCompact(p.keyLoc, msg, doubleHash)
}

var _ SingleKeyECDH = (*PubKeyECDH)(nil)
var _ SingleKeyECDH = (*PrivKeyECDH)(nil)
var _ SingleKeyMessageSigner = (*PubKeyMessageSigner)(nil)
