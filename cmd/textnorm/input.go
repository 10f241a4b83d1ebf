package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/wippyai/glyphtext/canon"
	"github.com/wippyai/glyphtext/text"
)

// parseHexUnits parses a comma or space separated list of 16-bit hex units.
// Each token may carry a 0x or U+ prefix.
func parseHexUnits(s string) (text.WideUnits, error) {
	tokens := splitHex(s)
	units := make(text.WideUnits, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid 16-bit unit %q: %w", tok, err)
		}
		units = append(units, uint16(v))
	}
	return units, nil
}

// parseHexBytes parses a comma or space separated list of hex bytes.
func parseHexBytes(s string) (text.ByteUnits, error) {
	tokens := splitHex(s)
	out := make(text.ByteUnits, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", tok, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func splitHex(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for i, f := range fields {
		switch {
		case strings.HasPrefix(f, "0x"), strings.HasPrefix(f, "0X"),
			strings.HasPrefix(f, "U+"), strings.HasPrefix(f, "u+"):
			fields[i] = f[2:]
		}
	}
	return fields
}

// textToUnits encodes UTF-8 text as 16-bit units without a byte-order mark.
func textToUnits(s string) (text.WideUnits, error) {
	enc := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewEncoder()
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode utf-16: %w", err)
	}
	units := make(text.WideUnits, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return units, nil
}

// textToLatin1 encodes UTF-8 text as ISO-8859-1 bytes.
func textToLatin1(s string) (text.ByteUnits, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("text is not representable in Latin-1: %w", err)
	}
	return text.ByteUnits(b), nil
}

// File encodings accepted by --encoding.
const (
	encodingUTF16LE = "utf16le"
	encodingUTF16BE = "utf16be"
	encodingLatin1  = "latin1"
)

// byteMemory exposes a file's contents as linear memory for canon.ReadSource.
type byteMemory []byte

func (m byteMemory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m)) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m[offset:end], nil
}

func (m byteMemory) Write(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m)) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(m[offset:], data)
	return nil
}

// readFileSource loads path and lifts its contents the way a guest string
// would be lifted from linear memory.
func readFileSource(path, encoding string) (text.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return sourceFromBytes(data, encoding)
}

func sourceFromBytes(data []byte, encoding string) (text.Source, error) {
	if uint64(len(data)) > canon.MaxStringSize {
		return nil, fmt.Errorf("%w: %d bytes", canon.ErrStringTooLarge, len(data))
	}

	var (
		enc   canon.StringEncoding
		units = uint32(len(data))
	)
	switch strings.ToLower(encoding) {
	case encodingUTF16LE, encodingUTF16BE:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("utf-16 input has odd length %d", len(data))
		}
		if strings.EqualFold(encoding, encodingUTF16BE) {
			data = swapPairs(data)
		}
		enc = canon.StringEncodingUTF16
		units /= 2
	case encodingLatin1:
		enc = canon.StringEncodingLatin1
	default:
		return nil, fmt.Errorf("unknown encoding %q (want %s, %s or %s)",
			encoding, encodingUTF16LE, encodingUTF16BE, encodingLatin1)
	}

	ctx := canon.NewLiftContext(context.Background(), canon.CanonicalOptions{
		Memory:   byteMemory(data),
		Encoding: enc,
	})
	return canon.ReadSource(ctx, 0, units)
}

func swapPairs(data []byte) []byte {
	out := make([]byte, len(data))
	for i := 0; i+1 < len(data); i += 2 {
		out[i], out[i+1] = data[i+1], data[i]
	}
	return out
}
