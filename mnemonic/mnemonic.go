// Package mnemonic converts between 256-bit entropy and 24-word BIP39
// mnemonic phrases, and stretches a phrase into a BIP32 seed.
package mnemonic

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/lightningnetwork/hkd32/zero"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	// WordCount is the number of words in a mnemonic.
	WordCount = 24

	// EntropySize is the number of entropy bytes encoded by a mnemonic.
	EntropySize = keymaterial.KeySize

	bitsPerWord = 11

	// checksumBits is entropy bits / 32.
	checksumBits = EntropySize * 8 / 32

	// pbkdf2Rounds is the BIP39 iteration count of the seed stretching.
	pbkdf2Rounds = 2048

	saltPrefix = "mnemonic"
)

var (
	// ErrInvalidWordCount is returned when a phrase does not have exactly
	// WordCount words.
	ErrInvalidWordCount = errors.New("invalid mnemonic word count")

	// ErrInvalidWord is returned when a word is not in the word list.
	ErrInvalidWord = errors.New("invalid mnemonic word")

	// ErrChecksumMismatch is returned when the checksum embedded in the
	// last word does not match the entropy.
	ErrChecksumMismatch = errors.New("mnemonic checksum mismatch")
)

// InvalidWordError identifies the position of a word that is not part of the
// word list. The word itself is left out so that errors never carry parts of
// a phrase.
type InvalidWordError struct {
	// Position is the 0-based index of the offending word.
	Position int
}

// Error implements the error interface.
func (e *InvalidWordError) Error() string {
	return fmt.Sprintf("%v at position %d", ErrInvalidWord, e.Position)
}

// Unwrap allows errors.Is(err, ErrInvalidWord).
func (e *InvalidWordError) Unwrap() error {
	return ErrInvalidWord
}

// Mnemonic is a 24-word phrase. Only the entropy is stored; the words are
// recomputed on demand.
type Mnemonic struct {
	entropy *keymaterial.KeyMaterial
}

// FromEntropy returns the mnemonic encoding entropy. The entropy is copied,
// so the caller keeps ownership of its argument.
func FromEntropy(entropy *keymaterial.KeyMaterial) *Mnemonic {
	return &Mnemonic{entropy: entropy.Clone()}
}

// Random generates a mnemonic from fresh entropy read from rng. A nil rng
// uses crypto/rand.
func Random(rng io.Reader) (*Mnemonic, error) {
	entropy, err := keymaterial.Random(rng)
	if err != nil {
		return nil, err
	}

	return &Mnemonic{entropy: entropy}, nil
}

// ParsePhrase splits a space separated phrase and parses it.
func ParsePhrase(phrase string) (*Mnemonic, error) {
	return Parse(strings.Fields(phrase))
}

// Parse decodes a list of words, validating each word and the checksum.
func Parse(words []string) (*Mnemonic, error) {
	if len(words) != WordCount {
		return nil, fmt.Errorf("%w: expected %d words, got %d",
			ErrInvalidWordCount, WordCount, len(words))
	}

	// 24 words carry 264 bits: the entropy followed by the checksum byte.
	var data [EntropySize + 1]byte
	defer zero.Bytes(data[:])

	for i, w := range words {
		w = norm.NFKD.String(strings.ToLower(strings.TrimSpace(w)))

		index, ok := WordIndex(w)
		if !ok {
			return nil, &InvalidWordError{Position: i}
		}

		putBits(data[:], i*bitsPerWord, index)
	}

	var raw [EntropySize]byte
	copy(raw[:], data[:EntropySize])
	defer zero.Array32(&raw)

	if checksum(&raw) != data[EntropySize] {
		return nil, ErrChecksumMismatch
	}

	return &Mnemonic{entropy: keymaterial.FromArray(&raw)}, nil
}

// checksum returns the first checksumBits of SHA256(entropy). With 256 bits
// of entropy this is exactly the first byte.
func checksum(entropy *[EntropySize]byte) byte {
	sum := sha256.Sum256(entropy[:])

	return sum[0] >> (8 - checksumBits)
}

// putBits writes the low bitsPerWord bits of v into data at bit offset off,
// most significant bit first.
func putBits(data []byte, off int, v uint16) {
	for i := 0; i < bitsPerWord; i++ {
		if v&(1<<(bitsPerWord-1-i)) == 0 {
			continue
		}

		bit := off + i
		data[bit/8] |= 1 << (7 - bit%8)
	}
}

// getBits reads bitsPerWord bits from data at bit offset off.
func getBits(data []byte, off int) uint16 {
	var v uint16
	for i := 0; i < bitsPerWord; i++ {
		bit := off + i
		v <<= 1
		v |= uint16(data[bit/8]>>(7-bit%8)) & 1
	}

	return v
}

// indices returns the word list positions of the phrase.
func (m *Mnemonic) indices() [WordCount]uint16 {
	raw := m.entropy.Array()
	defer zero.Array32(&raw)

	var data [EntropySize + 1]byte
	defer zero.Bytes(data[:])

	copy(data[:], raw[:])
	data[EntropySize] = checksum(&raw)

	var idx [WordCount]uint16
	for i := range idx {
		idx[i] = getBits(data[:], i*bitsPerWord)
	}

	return idx
}

// Words returns the words of the phrase in order.
func (m *Mnemonic) Words() []string {
	list, _ := words()
	idx := m.indices()

	out := make([]string, WordCount)
	for i, j := range idx {
		out[i] = list[j]
	}
	clear(idx[:])

	return out
}

// Phrase returns the words joined by single spaces.
func (m *Mnemonic) Phrase() string {
	return strings.Join(m.Words(), " ")
}

// String never prints the phrase.
func (m *Mnemonic) String() string {
	return "Mnemonic[REDACTED]"
}

// Entropy returns a copy of the encoded entropy. The result is itself usable
// as symmetric key material.
func (m *Mnemonic) Entropy() *keymaterial.KeyMaterial {
	return m.entropy.Clone()
}

// Equal reports whether both mnemonics encode the same entropy.
func (m *Mnemonic) Equal(o *Mnemonic) bool {
	return m.entropy.Equal(o.entropy)
}

// Zero wipes the entropy.
func (m *Mnemonic) Zero() {
	m.entropy.Zero()
}

// ToSeed stretches the phrase and passphrase into a 64-byte seed with
// PBKDF2-HMAC-SHA512. Both inputs are NFKD normalised first.
func (m *Mnemonic) ToSeed(passphrase string) *keymaterial.Seed {
	password := []byte(norm.NFKD.String(m.Phrase()))
	defer zero.Bytes(password)

	salt := []byte(saltPrefix + norm.NFKD.String(passphrase))
	defer zero.Bytes(salt)

	log.Debugf("Stretching mnemonic with %d PBKDF2 rounds", pbkdf2Rounds)

	key := pbkdf2.Key(password, salt, pbkdf2Rounds,
		keymaterial.SeedSize, sha512.New)
	defer zero.Bytes(key)

	seed, err := keymaterial.SeedFromBytes(key)
	if err != nil {
		// pbkdf2.Key always returns the requested length.
		panic(err)
	}

	return seed
}
