// Package canon lifts canonical ABI strings out of guest memory and exposes
// the decode host module.
//
// # Encodings
//
//	StringEncodingUTF16         little-endian 16-bit units, 2-byte aligned
//	StringEncodingLatin1        one byte per scalar
//	StringEncodingCompactUTF16  Latin-1 unless the length carries UTF16Tag
//	StringEncodingUTF8          rejected with ErrUnsupportedEncoding
//
// LiftString reads the units and hands them to a text.Normalizer with
// surrogate pairing enabled.
//
// # Host Module
//
// NewHostModule builds the "glyph:text/decode@0.1.0" module with two
// functions. measure returns the scalar count. decode also writes count+1
// little-endian u32 values, the last one zero, into a caller buffer. Both
// return a negative status on failure: -errors.Kind.Code() for text errors,
// or one of the Code* constants.
package canon
