// Package hdpath parses, renders and manipulates BIP32 derivation paths of
// the form m/44'/0'/0'/0/1.
package hdpath

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const pathSeparator = "/"

// ErrParse is the sentinel wrapped by every path parse failure.
var ErrParse = errors.New("invalid derivation path")

// ParseError describes why a derivation path string was rejected.
type ParseError struct {
	// Path is the full input string.
	Path string

	// Segment is the 0-based position of the offending segment, counting
	// the leading "m" as segment 0.
	Segment int

	// Reason is a short human readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v %q: segment %d: %s", ErrParse, e.Path,
		e.Segment, e.Reason)
}

// Unwrap allows errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Path is an immutable, ordered list of child numbers applied left to right
// from the master key. The zero value is the master path "m".
type Path struct {
	components []ChildNumber
}

// New builds a path from the given components.
func New(components ...ChildNumber) Path {
	return Path{components: slices.Clone(components)}
}

// Master returns the empty path.
func Master() Path {
	return Path{}
}

// MustParse is like Parse but panics on error. It is meant for package level
// variables holding constant paths.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return p
}

// Parse parses a path string such as "m/0/1'/2". Hardened components may be
// suffixed with ', h or H, and the leading m may be upper case.
func Parse(s string) (Path, error) {
	fail := func(segment int, reason string) (Path, error) {
		return Path{}, &ParseError{
			Path:    s,
			Segment: segment,
			Reason:  reason,
		}
	}

	segments := strings.Split(s, pathSeparator)
	if segments[0] != "m" && segments[0] != "M" {
		return fail(0, "path must start with m")
	}

	segments = segments[1:]

	components := make([]ChildNumber, 0, len(segments))
	for i, seg := range segments {
		if seg == "" {
			return fail(i+1, "empty segment")
		}

		hardened := false
		switch seg[len(seg)-1] {
		case '\'', 'h', 'H':
			hardened = true
			seg = seg[:len(seg)-1]
		}

		if seg == "" || seg[0] == '+' || seg[0] == '-' {
			return fail(i+1, "not a decimal index")
		}

		index, err := strconv.ParseUint(seg, 10, 32)
		switch {
		case errors.Is(err, strconv.ErrRange):
			return fail(i+1, "index out of range")

		case err != nil:
			return fail(i+1, "not a decimal index")

		case uint32(index) > MaxIndex:
			return fail(i+1, fmt.Sprintf("index %d must be below "+
				"%d", index, HardenedKeyStart))
		}

		c, _ := NewChildNumber(uint32(index), hardened)
		components = append(components, c)
	}

	return Path{components: components}, nil
}

// String renders the path in canonical form using ' for hardened
// components.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, c := range p.components {
		b.WriteString(pathSeparator)
		b.WriteString(c.String())
	}

	return b.String()
}

// Len returns the number of components.
func (p Path) Len() int {
	return len(p.components)
}

// IsMaster reports whether the path has no components.
func (p Path) IsMaster() bool {
	return len(p.components) == 0
}

// Components returns a copy of the components, so every call starts a fresh
// iteration that cannot affect the path.
func (p Path) Components() []ChildNumber {
	return slices.Clone(p.components)
}

// At returns the i-th component.
func (p Path) At(i int) ChildNumber {
	return p.components[i]
}

// Child returns a new path with c appended.
func (p Path) Child(c ChildNumber) Path {
	components := make([]ChildNumber, len(p.components), len(p.components)+1)
	copy(components, p.components)

	return Path{components: append(components, c)}
}

// Append returns a new path with all of other's components appended.
func (p Path) Append(other Path) Path {
	return Path{components: slices.Concat(p.components, other.components)}
}

// Parent returns the path without its last component. The parent of the
// master path is the master path.
func (p Path) Parent() Path {
	if len(p.components) == 0 {
		return p
	}

	return Path{components: slices.Clone(
		p.components[:len(p.components)-1],
	)}
}

// HasPrefix reports whether prefix is a (not necessarily strict) prefix of
// p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.components) > len(p.components) {
		return false
	}

	return slices.Equal(
		p.components[:len(prefix.components)], prefix.components,
	)
}

// TrimPrefix returns the components of p that follow prefix. The boolean is
// false if prefix is not a prefix of p.
func (p Path) TrimPrefix(prefix Path) (Path, bool) {
	if !p.HasPrefix(prefix) {
		return Path{}, false
	}

	return Path{components: slices.Clone(
		p.components[len(prefix.components):],
	)}, true
}

// Equal reports whether both paths have the same components.
func (p Path) Equal(o Path) bool {
	return slices.Equal(p.components, o.components)
}

// IsHardenedOnly reports whether every component is hardened, which is what
// symmetric derivation requires.
func (p Path) IsHardenedOnly() bool {
	for _, c := range p.components {
		if !c.IsHardened() {
			return false
		}
	}

	return true
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
