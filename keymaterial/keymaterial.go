// Package keymaterial holds fixed size secret byte buffers: 32-byte derived
// keys and 64-byte BIP32 seeds. The bytes are only reachable through Expose
// and are wiped when the owner calls Zero, or when the value is collected.
package keymaterial

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/lightningnetwork/hkd32/zero"
)

const (
	// KeySize is the size in bytes of a derived key or root key.
	KeySize = 32

	// SeedSize is the size in bytes of a BIP32 seed as produced by the
	// mnemonic stretching step.
	SeedSize = 64

	redacted = "[REDACTED]"
)

var (
	// ErrInvalidLength is returned when a buffer of the wrong size is used
	// to construct a KeyMaterial or Seed.
	ErrInvalidLength = errors.New("invalid key material length")

	// ErrDecode is returned when an encoded key cannot be decoded.
	ErrDecode = errors.New("malformed encoded key material")
)

// secret is the shared backing store of KeyMaterial and Seed. The buffer is
// allocated separately from the owning struct so that a cleanup registered
// on the owner can still reach and wipe it.
type secret struct {
	buf  []byte
	kind string
}

func newSecret(size int, kind string) secret {
	return secret{
		buf:  make([]byte, size),
		kind: kind,
	}
}

// wipeOnCollect arranges for buf to be cleared once owner is unreachable.
func wipeOnCollect[T any](owner *T, buf []byte) {
	runtime.AddCleanup(owner, zero.Bytes, buf)
}

// Expose returns the raw secret bytes. The returned slice aliases the
// internal buffer and is wiped along with it, including when the owner is
// collected. Callers must keep the owner reachable, with runtime.KeepAlive,
// until they are done with the slice.
func (s *secret) Expose() []byte {
	return s.buf
}

// Zero overwrites the backing buffer with zeroes.
func (s *secret) Zero() {
	zero.Bytes(s.buf)
}

// IsZeroed reports whether the backing buffer is all zeroes, which is the
// case after Zero has been called.
func (s *secret) IsZeroed() bool {
	return zero.IsZero(s.buf)
}

// Len returns the fixed size of the buffer.
func (s *secret) Len() int {
	return len(s.buf)
}

// String never prints the secret.
func (s secret) String() string {
	return s.kind + redacted
}

// GoString never prints the secret.
func (s secret) GoString() string {
	return s.String()
}

// Format implements fmt.Formatter so that no verb, including %x and %#v,
// ever renders the key bytes.
func (s secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, s.String())
}

func (s *secret) equal(o *secret) bool {
	eq := subtle.ConstantTimeCompare(s.buf, o.buf) == 1
	runtime.KeepAlive(s)
	runtime.KeepAlive(o)

	return eq
}

// KeyMaterial is a 32-byte secret key.
type KeyMaterial struct {
	secret
}

// FromBytes copies b into a new KeyMaterial. The caller remains responsible
// for wiping b.
func FromBytes(b []byte) (*KeyMaterial, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d",
			ErrInvalidLength, KeySize, len(b))
	}

	k := newKeyMaterial()
	copy(k.buf, b)

	return k, nil
}

// FromArray copies a fixed size array into a new KeyMaterial.
func FromArray(b *[KeySize]byte) *KeyMaterial {
	k := newKeyMaterial()
	copy(k.buf, b[:])

	return k
}

// Random reads KeySize bytes from rng. A nil rng uses crypto/rand.
func Random(rng io.Reader) (*KeyMaterial, error) {
	if rng == nil {
		rng = rand.Reader
	}

	k := newKeyMaterial()
	if _, err := io.ReadFull(rng, k.buf); err != nil {
		k.Zero()
		return nil, fmt.Errorf("unable to read key entropy: %w", err)
	}

	return k, nil
}

func newKeyMaterial() *KeyMaterial {
	k := &KeyMaterial{secret: newSecret(KeySize, "KeyMaterial")}
	wipeOnCollect(k, k.buf)

	return k
}

// Array returns a copy of the key as a fixed size array.
func (k *KeyMaterial) Array() [KeySize]byte {
	var a [KeySize]byte
	copy(a[:], k.buf)
	runtime.KeepAlive(k)

	return a
}

// Clone returns an independent copy of the key. Each copy must be wiped
// separately, so this should be used sparingly.
func (k *KeyMaterial) Clone() *KeyMaterial {
	c := newKeyMaterial()
	copy(c.buf, k.buf)
	runtime.KeepAlive(k)

	return c
}

// Equal compares two keys in constant time.
func (k *KeyMaterial) Equal(o *KeyMaterial) bool {
	if k == nil || o == nil {
		return k == o
	}

	return k.equal(&o.secret)
}

// Seed is a 64-byte BIP32 seed.
type Seed struct {
	secret
}

// SeedFromBytes copies b into a new Seed.
func SeedFromBytes(b []byte) (*Seed, error) {
	if len(b) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d",
			ErrInvalidLength, SeedSize, len(b))
	}

	s := newSeed()
	copy(s.buf, b)

	return s, nil
}

// RandomSeed reads SeedSize bytes from rng. A nil rng uses crypto/rand.
func RandomSeed(rng io.Reader) (*Seed, error) {
	if rng == nil {
		rng = rand.Reader
	}

	s := newSeed()
	if _, err := io.ReadFull(rng, s.buf); err != nil {
		s.Zero()
		return nil, fmt.Errorf("unable to read seed entropy: %w", err)
	}

	return s, nil
}

func newSeed() *Seed {
	s := &Seed{secret: newSecret(SeedSize, "Seed")}
	wipeOnCollect(s, s.buf)

	return s
}

// Clone returns an independent copy of the seed.
func (s *Seed) Clone() *Seed {
	c := newSeed()
	copy(c.buf, s.buf)
	runtime.KeepAlive(s)

	return c
}

// Equal compares two seeds in constant time.
func (s *Seed) Equal(o *Seed) bool {
	if s == nil || o == nil {
		return s == o
	}

	return s.equal(&o.secret)
}
