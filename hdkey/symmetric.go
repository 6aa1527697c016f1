package hdkey

import (
	"fmt"
	"runtime"

	"github.com/lightningnetwork/hkd32/ckd"
	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/lightningnetwork/hkd32/zero"
)

// SymmetricKey is a node of a symmetric key hierarchy. It uses the same
// master node and hardened HMAC input as BIP32, but the left half of each
// HMAC output is the child key itself, with no curve arithmetic. Without a
// public key there is no fingerprint and no normal derivation.
type SymmetricKey struct {
	key       *keymaterial.KeyMaterial
	chainCode ckd.ChainCode
	depth     uint8
	childNum  hdpath.ChildNumber
}

// NewSymmetricMaster creates the root of a symmetric hierarchy from seed.
func NewSymmetricMaster(seed *keymaterial.Seed) *SymmetricKey {
	il, ir := ckd.Step(masterKey, seed.Expose())
	runtime.KeepAlive(seed)
	defer zero.Array32(&il)

	return &SymmetricKey{
		key:       keymaterial.FromArray(&il),
		chainCode: ir,
	}
}

// NewSymmetricKey wraps an existing key and chain code as a root node.
func NewSymmetricKey(key *keymaterial.KeyMaterial,
	chainCode ckd.ChainCode) *SymmetricKey {

	return &SymmetricKey{
		key:       key.Clone(),
		chainCode: chainCode,
	}
}

// Derive returns the hardened child at c. Normal child numbers are rejected
// with ErrInvalidChildIndex.
func (k *SymmetricKey) Derive(c hdpath.ChildNumber) (*SymmetricKey, error) {
	if k.depth == MaxDepth {
		return nil, fmt.Errorf("%w: cannot derive past depth %d",
			ErrDepthExceeded, MaxDepth)
	}

	parent := k.key.Array()
	defer zero.Array32(&parent)

	childKey, chainCode, err := ckd.DeriveSymmetric(
		&parent, &k.chainCode, c.Uint32(),
	)
	if err != nil {
		return nil, err
	}
	defer zero.Array32(&childKey)

	return &SymmetricKey{
		key:       keymaterial.FromArray(&childKey),
		chainCode: chainCode,
		depth:     k.depth + 1,
		childNum:  c,
	}, nil
}

// DerivePath derives every component of p in order. Intermediate keys are
// wiped and nothing is returned on error.
func (k *SymmetricKey) DerivePath(p hdpath.Path) (*SymmetricKey, error) {
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
		return &SymmetricKey{
			key:       k.key.Clone(),
			chainCode: k.chainCode,
			depth:     k.depth,
			childNum:  k.childNum,
		}, nil
	}

	return current, nil
}

// Key returns a copy of the derived key.
func (k *SymmetricKey) Key() *keymaterial.KeyMaterial {
	return k.key.Clone()
}

// ChainCode returns the chain code.
func (k *SymmetricKey) ChainCode() ckd.ChainCode {
	return k.chainCode
}

// Depth returns the number of derivation steps from the root.
func (k *SymmetricKey) Depth() uint8 {
	return k.depth
}

// ChildNumber returns the child number k was derived at.
func (k *SymmetricKey) ChildNumber() hdpath.ChildNumber {
	return k.childNum
}

// ToBech32 renders the key, without its chain code, as bech32.
func (k *SymmetricKey) ToBech32(hrp string) (string, error) {
	return k.key.ToBech32(hrp)
}

// String never prints the key.
func (k *SymmetricKey) String() string {
	return "SymmetricKey[REDACTED]"
}

// GoString never prints the key.
func (k *SymmetricKey) GoString() string {
	return k.String()
}

// Zero wipes the key and chain code.
func (k *SymmetricKey) Zero() {
	k.key.Zero()
	zero.Bytes(k.chainCode[:])
}
