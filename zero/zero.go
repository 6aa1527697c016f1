// Package zero provides the secure-wipe primitive used by every container of
// secret key material in this module.
package zero

import "runtime"

// Bytes overwrites every byte of b with zero. The final KeepAlive keeps the
// slice reachable until after the stores, so the compiler cannot treat the
// writes as dead and drop them.
func Bytes(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// Array32 wipes a fixed size 32-byte array in place.
func Array32(b *[32]byte) {
	Bytes(b[:])
}

// Array64 wipes a fixed size 64-byte array in place.
func Array64(b *[64]byte) {
	Bytes(b[:])
}

// IsZero reports whether every byte of b is zero. It runs in time that
// depends only on len(b).
func IsZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}

	return acc == 0
}
