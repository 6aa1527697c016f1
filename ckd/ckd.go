// Package ckd implements the single HMAC-SHA512 child key derivation step
// shared by the BIP32 and symmetric key hierarchies.
package ckd

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/zero"
)

const (
	// KeySize is the size of a private or symmetric key.
	KeySize = 32

	// ChainCodeSize is the size of a chain code.
	ChainCodeSize = 32
)

var (
	// ErrInvalidChildIndex is returned when the requested child number is
	// not supported by the derivation mode, e.g. a non-hardened child of
	// a symmetric key or a hardened child of a public key.
	ErrInvalidChildIndex = errors.New("invalid child index for " +
		"derivation mode")

	// ErrInvalidKey is returned when the HMAC output does not produce a
	// usable child key. Callers are expected to move on to the next
	// index.
	ErrInvalidKey = errors.New("derived key is invalid")
)

// ChainCode is the 32 bytes of extra entropy that accompany every key in the
// hierarchy and key the HMAC of the next step.
type ChainCode [ChainCodeSize]byte

// Step computes HMAC-SHA512(key=chainCode, msg) and returns the left and
// right halves. The left half becomes the child key (or the tweak applied to
// the parent key) and the right half the child chain code.
func Step(chainCode, msg []byte) (il [KeySize]byte, ir ChainCode) {
	mac := hmac.New(sha512.New, chainCode)
	_, _ = mac.Write(msg)

	var sum [sha512.Size]byte
	mac.Sum(sum[:0])

	copy(il[:], sum[:KeySize])
	copy(ir[:], sum[KeySize:])
	zero.Array64(&sum)

	return il, ir
}

// HardenedMessage builds 0x00 || key || ser32(index). The caller should wipe
// the result once it has been fed to the HMAC.
func HardenedMessage(parentKey []byte, index uint32) []byte {
	msg := make([]byte, 1+len(parentKey)+4)
	copy(msg[1:], parentKey)
	binary.BigEndian.PutUint32(msg[1+len(parentKey):], index)

	return msg
}

// NormalMessage builds serP(pub) || ser32(index).
func NormalMessage(parentPub []byte, index uint32) []byte {
	msg := make([]byte, len(parentPub)+4)
	copy(msg, parentPub)
	binary.BigEndian.PutUint32(msg[len(parentPub):], index)

	return msg
}

func isHardened(index uint32) bool {
	return index >= hdpath.HardenedKeyStart
}

// DeriveChild derives the private child key at index from a private parent.
// Hardened children hash the parent private key, normal children hash the
// parent public key as computed by curve.
func DeriveChild(curve Curve, parentKey []byte, chainCode *ChainCode,
	index uint32) ([]byte, ChainCode, error) {

	var msg []byte
	if isHardened(index) {
		msg = HardenedMessage(parentKey, index)
	} else {
		pub, err := curve.PublicKey(parentKey)
		if err != nil {
			return nil, ChainCode{}, err
		}
		msg = NormalMessage(pub, index)
	}

	il, ir := Step(chainCode[:], msg)
	zero.Bytes(msg)
	defer zero.Array32(&il)

	child, err := curve.AddPrivate(&il, parentKey)
	if err != nil {
		log.Debugf("Skipping unusable child at index %d: %v", index,
			err)

		return nil, ChainCode{}, fmt.Errorf("child %d: %w", index, err)
	}

	return child, ir, nil
}

// DeriveChildPublic derives the public child key at index from a public
// parent. Only normal indexes can be derived this way.
func DeriveChildPublic(curve Curve, parentPub []byte, chainCode *ChainCode,
	index uint32) ([]byte, ChainCode, error) {

	if isHardened(index) {
		return nil, ChainCode{}, fmt.Errorf("%w: cannot derive "+
			"hardened child %d from a public key",
			ErrInvalidChildIndex, index)
	}

	msg := NormalMessage(parentPub, index)
	il, ir := Step(chainCode[:], msg)
	defer zero.Array32(&il)

	child, err := curve.AddPublic(&il, parentPub)
	if err != nil {
		log.Debugf("Skipping unusable public child at index %d: %v",
			index, err)

		return nil, ChainCode{}, fmt.Errorf("child %d: %w", index, err)
	}

	return child, ir, nil
}

// DeriveSymmetric derives a symmetric child key. There is no curve
// arithmetic: the left half of the HMAC output is the child key itself.
// Symmetric keys have no public counterpart, so only hardened indexes are
// accepted.
func DeriveSymmetric(parentKey *[KeySize]byte, chainCode *ChainCode,
	index uint32) ([KeySize]byte, ChainCode, error) {

	if !isHardened(index) {
		return [KeySize]byte{}, ChainCode{}, fmt.Errorf("%w: symmetric "+
			"derivation requires a hardened index, got %d",
			ErrInvalidChildIndex, index)
	}

	msg := HardenedMessage(parentKey[:], index)
	il, ir := Step(chainCode[:], msg)
	zero.Bytes(msg)

	return il, ir, nil
}
