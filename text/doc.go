// Package text converts 16-bit code units or Latin-1 bytes into scalar values.
//
// # Sources
//
// A Source is one of two closed forms:
//
//	WideUnits  16-bit code units; surrogate pairs merge into one scalar
//	ByteUnits  bytes; each byte is one scalar 0-255, never UTF-8
//
// Untyped values are mapped onto a Source with Classify, which rejects
// anything else with errors.KindUnsupportedInput.
//
// # Decoding Flow
//
// Wide input runs in two passes:
//
//  1. ValidateAndMeasure scans every unit, rejects byte-order marks
//     (0xFEFF, 0xFFFE) and malformed pairs, and counts output scalars
//  2. Merge writes the scalars into a buffer of exactly that length
//
// The buffer is allocated between the passes, so an error never leaves a
// partially filled result behind. Byte input skips validation and goes through
// Expand.
//
// # Surrogate Ranges
//
//	Range            Meaning
//	──────────────────────────────────────────
//	0xD800-0xD8FF    high surrogate (pair start)
//	0xD900-0xDFFF    reported as missing high surrogate
//	0xDC00-0xDFFF    valid second unit of a pair
//
// A pair (H, L) yields ((H & 0x3FF) << 10 | (L & 0x3FF)) + 0x10000.
//
// # Output
//
// DecodedString owns Len()+1 slots. Raw() exposes them with the trailing zero
// sentinel; Scalars() stops before it.
package text
