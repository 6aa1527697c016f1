// Package hkd32 derives symmetric subkeys from 32-byte key material along
// paths of arbitrary byte strings. Each component is folded in with
// HMAC-SHA512 keyed by the current key: every step but the last continues
// with the right half of the output, and the last step returns the left
// half.
package hkd32

import (
	"runtime"

	"github.com/lightningnetwork/hkd32/ckd"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/lightningnetwork/hkd32/mnemonic"
	"github.com/lightningnetwork/hkd32/zero"
)

// seedDomain keys the HMAC that turns a BIP39 seed into a root key. It is
// the same key BIP32 uses for its master node.
var seedDomain = []byte("Bitcoin seed")

// DeriveSubkey returns the key at p below key. The root path returns a copy
// of key.
func DeriveSubkey(key *keymaterial.KeyMaterial,
	p Path) *keymaterial.KeyMaterial {

	current := key.Array()
	defer zero.Array32(&current)

	last := len(p.components) - 1
	for i, c := range p.components {
		il, ir := ckd.Step(current[:], c)
		if i < last {
			current = ir
		} else {
			current = il
		}

		zero.Array32(&il)
		zero.Array32((*[32]byte)(&ir))
	}

	log.Tracef("Derived subkey at depth %d", p.Len())

	return keymaterial.FromArray(&current)
}

// SeedSubkey derives the key at p from a BIP39 seed. The root key is the
// right half of HMAC-SHA512 keyed by "Bitcoin seed" over the seed, so the
// root path returns the BIP32 master chain code.
func SeedSubkey(seed *keymaterial.Seed, p Path) *keymaterial.KeyMaterial {
	il, ir := ckd.Step(seedDomain, seed.Expose())
	runtime.KeepAlive(seed)
	zero.Array32(&il)
	defer zero.Array32((*[32]byte)(&ir))

	root := keymaterial.FromArray((*[32]byte)(&ir))
	defer root.Zero()

	return DeriveSubkey(root, p)
}

// MnemonicSubkey derives the key at p using the entropy of m as the root
// key material. No passphrase or PBKDF2 stretching is involved.
func MnemonicSubkey(m *mnemonic.Mnemonic, p Path) *keymaterial.KeyMaterial {
	root := m.Entropy()
	defer root.Zero()

	return DeriveSubkey(root, p)
}
