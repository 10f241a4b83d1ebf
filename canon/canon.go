package canon

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/wippyai/glyphtext"
	"github.com/wippyai/glyphtext/text"
)

var (
	// ErrNilMemory is returned when memory operations are attempted without memory
	ErrNilMemory = errors.New("nil memory")

	// ErrMemoryRead is returned when memory read fails
	ErrMemoryRead = errors.New("memory read failed")

	// ErrMemoryWrite is returned when memory write fails
	ErrMemoryWrite = errors.New("memory write failed")

	// ErrUnsupportedEncoding is returned for encodings that are not lifted to scalars
	ErrUnsupportedEncoding = errors.New("only UTF-16, Latin-1 and compact UTF-16 strings are supported")

	// ErrMisaligned is returned when a pointer violates the encoding's alignment
	ErrMisaligned = errors.New("misaligned pointer")

	// ErrStringTooLarge is returned when a string exceeds MaxStringSize bytes
	ErrStringTooLarge = errors.New("string too large")
)

// MaxStringSize bounds the bytes read for one guest string.
const MaxStringSize = 1 << 30

// UTF16Tag marks a compact UTF-16 length as UTF-16 rather than Latin-1.
const UTF16Tag uint32 = 1 << 31

// StringEncoding represents the string encoding for canonical ABI
type StringEncoding byte

const (
	StringEncodingUTF8 StringEncoding = iota
	StringEncodingUTF16
	StringEncodingLatin1
	// StringEncodingCompactUTF16 is latin1+utf16: the length is tagged with
	// UTF16Tag when the string is stored as UTF-16.
	StringEncodingCompactUTF16
)

func (e StringEncoding) String() string {
	switch e {
	case StringEncodingUTF8:
		return "utf8"
	case StringEncodingUTF16:
		return "utf16"
	case StringEncodingLatin1:
		return "latin1"
	case StringEncodingCompactUTF16:
		return "latin1+utf16"
	default:
		return fmt.Sprintf("encoding(%d)", byte(e))
	}
}

// Canon option bytes for string-encoding in component binaries.
const (
	CanonOptUTF8         byte = 0x00
	CanonOptUTF16        byte = 0x01
	CanonOptCompactUTF16 byte = 0x02
)

// EncodingFromCanonOpt maps a canon string-encoding option to a StringEncoding.
func EncodingFromCanonOpt(opt byte) (StringEncoding, error) {
	switch opt {
	case CanonOptUTF8:
		return StringEncodingUTF8, nil
	case CanonOptUTF16:
		return StringEncodingUTF16, nil
	case CanonOptCompactUTF16:
		return StringEncodingCompactUTF16, nil
	default:
		return 0, fmt.Errorf("%w: canon option 0x%02x", ErrUnsupportedEncoding, opt)
	}
}

// CanonicalOptions holds options for canonical ABI operations
type CanonicalOptions struct {
	Memory     glyphtext.Memory
	Normalizer *text.Normalizer
	Encoding   StringEncoding
}

// LiftContext holds context for lifting values from WASM
type LiftContext struct {
	Ctx     context.Context
	Options CanonicalOptions
}

// NewLiftContext creates context for lifting guest strings.
func NewLiftContext(ctx context.Context, opts CanonicalOptions) *LiftContext {
	return &LiftContext{
		Ctx:     ctx,
		Options: opts,
	}
}

// err reports whether the lift was canceled before touching guest memory.
func (c *LiftContext) err() error {
	if c.Ctx == nil {
		return nil
	}
	return c.Ctx.Err()
}

func (c *LiftContext) normalizer() *text.Normalizer {
	if c.Options.Normalizer != nil {
		return c.Options.Normalizer
	}
	return defaultNormalizer
}

var defaultNormalizer = text.New()

// LiftString reads a string from memory and normalizes it into scalars.
// units counts code units: 16-bit units for UTF-16, bytes for Latin-1, and a
// tagged count for compact UTF-16. Surrogate pairs are always merged.
func LiftString(ctx *LiftContext, ptr, units uint32) (*text.DecodedString, error) {
	src, err := ReadSource(ctx, ptr, units)
	if err != nil {
		return nil, err
	}
	return ctx.normalizer().Normalize(src, true)
}

// ReadSource reads the raw code units of a guest string without decoding them.
// UTF-16 units are copied out of guest memory; Latin-1 bytes alias it and are
// only valid until the guest runs again. A canceled ctx.Ctx fails before any
// read.
func ReadSource(ctx *LiftContext, ptr, units uint32) (text.Source, error) {
	if err := ctx.err(); err != nil {
		return nil, err
	}
	enc := ctx.Options.Encoding
	if enc == StringEncodingCompactUTF16 {
		if units&UTF16Tag != 0 {
			enc = StringEncodingUTF16
			units &^= UTF16Tag
		} else {
			enc = StringEncodingLatin1
		}
	}

	switch enc {
	case StringEncodingUTF16:
		return readWide(ctx.Options.Memory, ptr, units)
	case StringEncodingLatin1:
		return readLatin1(ctx.Options.Memory, ptr, units)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
}

func readWide(mem glyphtext.Memory, ptr, units uint32) (text.WideUnits, error) {
	if mem == nil {
		return nil, ErrNilMemory
	}
	if ptr%2 != 0 {
		return nil, fmt.Errorf("%w: utf16 string at ptr=%d", ErrMisaligned, ptr)
	}
	size := uint64(units) * 2
	if size > MaxStringSize {
		return nil, fmt.Errorf("%w: %d utf16 units", ErrStringTooLarge, units)
	}
	data, err := mem.Read(ptr, uint32(size))
	if err != nil {
		return nil, fmt.Errorf("%w: ptr=%d len=%d: %v", ErrMemoryRead, ptr, size, err)
	}

	out := make(text.WideUnits, units)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return out, nil
}

func readLatin1(mem glyphtext.Memory, ptr, units uint32) (text.ByteUnits, error) {
	if mem == nil {
		return nil, ErrNilMemory
	}
	if units > MaxStringSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrStringTooLarge, units)
	}
	data, err := mem.Read(ptr, units)
	if err != nil {
		return nil, fmt.Errorf("%w: ptr=%d len=%d: %v", ErrMemoryRead, ptr, units, err)
	}
	return text.ByteUnits(data), nil
}

// ScalarsSize returns the bytes needed to store ds with its sentinel as u32 values.
func ScalarsSize(ds *text.DecodedString) (uint32, bool) {
	n := uint64(len(ds.Raw())) * 4
	if n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// WriteScalars stores every slot of ds, sentinel included, as little-endian
// u32 values at ptr. ptr must be 4-byte aligned.
func WriteScalars(mem glyphtext.Memory, ptr uint32, ds *text.DecodedString) error {
	if mem == nil {
		return ErrNilMemory
	}
	if ptr%4 != 0 {
		return fmt.Errorf("%w: scalar buffer at ptr=%d", ErrMisaligned, ptr)
	}
	size, ok := ScalarsSize(ds)
	if !ok {
		return fmt.Errorf("%w: %d scalars", ErrStringTooLarge, ds.Len())
	}

	buf := make([]byte, size)
	for i, r := range ds.Raw() {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(r))
	}
	if err := mem.Write(ptr, buf); err != nil {
		return fmt.Errorf("%w: ptr=%d len=%d: %v", ErrMemoryWrite, ptr, size, err)
	}
	return nil
}
