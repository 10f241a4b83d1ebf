package text

import (
	"github.com/wippyai/glyphtext/errors"
)

// Source is the input to normalization. It is either WideUnits or ByteUnits.
type Source interface {
	// Units returns the number of input code units.
	Units() int
	// Kind names the source for diagnostics.
	Kind() string
	isSource()
}

// WideUnits is a sequence of 16-bit code units, possibly holding UTF-16
// surrogate pairs.
type WideUnits []uint16

func (w WideUnits) Units() int { return len(w) }
func (w WideUnits) Kind() string { return "wide" }
func (WideUnits) isSource() {}

// ByteUnits is a sequence of bytes read as Latin-1.
type ByteUnits []byte

func (b ByteUnits) Units() int { return len(b) }
func (b ByteUnits) Kind() string { return "bytes" }
func (ByteUnits) isSource() {}

// Classify maps an untyped value onto a Source. Accepted values are
// []uint16, WideUnits, []byte and ByteUnits. Strings are rejected: their
// UTF-8 contents are not Latin-1 and are not decoded here.
func Classify(v any) (Source, error) {
	switch x := v.(type) {
	case WideUnits:
		return x, nil
	case []uint16:
		return WideUnits(x), nil
	case ByteUnits:
		return x, nil
	case []byte:
		return ByteUnits(x), nil
	default:
		return nil, errors.UnsupportedInput(typeName(v))
	}
}
