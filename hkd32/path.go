package hkd32

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Delimiter separates the components of a path string.
	Delimiter = "/"

	// MaxComponentLen is the largest component the binary encoding can
	// carry, as each component is prefixed by its length minus one.
	MaxComponentLen = 256
)

// ErrParse is returned for malformed path strings or encodings.
var ErrParse = errors.New("invalid hkd32 path")

// Path is a location in a symmetric key tree made of arbitrary byte string
// components, written like a Unix path: "/first/second/third". Every path
// names an unrelated key. The zero value is the root path.
type Path struct {
	components [][]byte
}

// NewPath builds a path from raw components. Every component must be
// between 1 and MaxComponentLen bytes.
func NewPath(components ...[]byte) (Path, error) {
	var p Path
	for i, c := range components {
		if err := checkComponent(c); err != nil {
			return Path{}, fmt.Errorf("component %d: %w", i, err)
		}
		p.components = append(p.components, bytes.Clone(c))
	}

	return p, nil
}

// MustParsePath is like ParsePath but panics on error. It is meant for
// package level path constants.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}

	return p
}

// ParsePath parses a path string. The string must start with the delimiter,
// and empty components such as in "//" or "/foo/" are rejected. A lone "/"
// is the root.
func ParsePath(s string) (Path, error) {
	if s == Delimiter {
		return Path{}, nil
	}

	if !strings.HasPrefix(s, Delimiter) {
		return Path{}, fmt.Errorf("%w: %q must start with %q", ErrParse,
			s, Delimiter)
	}

	parts := strings.Split(s[len(Delimiter):], Delimiter)
	p := Path{components: make([][]byte, 0, len(parts))}
	for i, part := range parts {
		if err := checkComponent([]byte(part)); err != nil {
			return Path{}, fmt.Errorf("component %d of %q: %w", i,
				s, err)
		}
		p.components = append(p.components, []byte(part))
	}

	return p, nil
}

func checkComponent(c []byte) error {
	switch {
	case len(c) == 0:
		return fmt.Errorf("%w: empty component", ErrParse)

	case len(c) > MaxComponentLen:
		return fmt.Errorf("%w: component of %d bytes exceeds %d",
			ErrParse, len(c), MaxComponentLen)
	}

	return nil
}

// String renders the path in its slash notation. Components that are not
// valid UTF-8 or contain the delimiter are written as 0x prefixed hex, and
// such paths do not parse back to themselves.
func (p Path) String() string {
	if p.IsRoot() {
		return Delimiter
	}

	var b strings.Builder
	for _, c := range p.components {
		b.WriteString(Delimiter)
		if utf8.Valid(c) && !bytes.Contains(c, []byte(Delimiter)) {
			b.Write(c)
		} else {
			fmt.Fprintf(&b, "0x%x", c)
		}
	}

	return b.String()
}

// Len returns the number of components.
func (p Path) Len() int {
	return len(p.components)
}

// IsRoot reports whether p has no components.
func (p Path) IsRoot() bool {
	return len(p.components) == 0
}

// Components returns a copy of the components of p.
func (p Path) Components() [][]byte {
	out := make([][]byte, len(p.components))
	for i, c := range p.components {
		out[i] = bytes.Clone(c)
	}

	return out
}

// Parent returns p without its last component. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}

	n := len(p.components) - 1

	return Path{components: p.components[:n:n]}, true
}

// Child returns p extended by one component.
func (p Path) Child(c []byte) (Path, error) {
	if err := checkComponent(c); err != nil {
		return Path{}, err
	}

	return p.Join(Path{components: [][]byte{bytes.Clone(c)}}), nil
}

// Join returns the components of p followed by those of other.
func (p Path) Join(other Path) Path {
	joined := make([][]byte, 0, len(p.components)+len(other.components))
	joined = append(joined, p.components...)
	joined = append(joined, other.components...)

	return Path{components: joined}
}

// Equal reports whether both paths have the same components.
func (p Path) Equal(o Path) bool {
	if len(p.components) != len(o.components) {
		return false
	}
	for i := range p.components {
		if !bytes.Equal(p.components[i], o.components[i]) {
			return false
		}
	}

	return true
}

// MarshalBinary encodes the path as the concatenation of its components,
// each prefixed by a byte holding its length minus one. The root encodes to
// an empty slice.
func (p Path) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range p.components {
		buf.WriteByte(byte(len(c) - 1))
		buf.Write(c)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the format produced by MarshalBinary. Truncated
// input is rejected with ErrParse.
func (p *Path) UnmarshalBinary(data []byte) error {
	var components [][]byte
	for len(data) > 0 {
		size := int(data[0]) + 1
		data = data[1:]
		if len(data) < size {
			return fmt.Errorf("%w: component truncated, want %d "+
				"bytes have %d", ErrParse, size, len(data))
		}

		components = append(components, bytes.Clone(data[:size]))
		data = data[size:]
	}

	p.components = components

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed

	return nil
}
