package hdpath

import (
	"fmt"
	"strconv"
)

const (
	// HardenedKeyStart is the index at which hardened child numbers begin.
	// Anything below it is a normal (non-hardened) child.
	HardenedKeyStart uint32 = 1 << 31

	// MaxIndex is the largest index that can be combined with the
	// hardened flag.
	MaxIndex = HardenedKeyStart - 1
)

// ChildNumber is a single derivation path component: a 31-bit index with the
// hardened flag in the top bit.
type ChildNumber uint32

// NewChildNumber builds a child number from an index and hardened flag. The
// index must be below HardenedKeyStart.
func NewChildNumber(index uint32, hardened bool) (ChildNumber, error) {
	if index > MaxIndex {
		return 0, fmt.Errorf("%w: index %d exceeds %d", ErrParse,
			index, MaxIndex)
	}

	if hardened {
		return ChildNumber(index | HardenedKeyStart), nil
	}

	return ChildNumber(index), nil
}

// Hardened returns the hardened child number for index. The top bit of index
// is ignored.
func Hardened(index uint32) ChildNumber {
	return ChildNumber(index | HardenedKeyStart)
}

// Normal returns the non-hardened child number for index. The top bit of
// index is cleared.
func Normal(index uint32) ChildNumber {
	return ChildNumber(index &^ HardenedKeyStart)
}

// Index returns the index without the hardened flag.
func (c ChildNumber) Index() uint32 {
	return uint32(c) &^ HardenedKeyStart
}

// IsHardened reports whether the hardened flag is set.
func (c ChildNumber) IsHardened() bool {
	return uint32(c)&HardenedKeyStart != 0
}

// Uint32 returns the encoded value used on the wire and in HMAC messages.
func (c ChildNumber) Uint32() uint32 {
	return uint32(c)
}

// String renders the component in canonical form, e.g. "44'" or "0".
func (c ChildNumber) String() string {
	s := strconv.FormatUint(uint64(c.Index()), 10)
	if c.IsHardened() {
		return s + "'"
	}

	return s
}
