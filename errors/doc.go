// Package errors provides the structured error type for glyphtext.
//
// Errors carry the Codec of the decode path that failed ("utf-16" or
// "latin-1"), a Kind from a fixed set, and the offending range of input units
// (Start inclusive, End exclusive). Offsets always refer to the original input
// sequence, never to normalized output.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.CodecUTF16, errors.KindExpectedLowSurrogate).
//		At(i).
//		Value(unit).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingLowSurrogate(errors.CodecUTF16, i, unit)
//	err := errors.OutOfMemory(errors.CodecLatin1, slots, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// The ErrX sentinels match any error of their kind regardless of codec.
package errors
