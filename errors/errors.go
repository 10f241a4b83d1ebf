package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec names the decode path that produced an error
const (
	CodecUTF16  = "utf-16"
	CodecLatin1 = "latin-1"
)

// Kind categorizes the error
type Kind string

const (
	KindUnexpectedBOM        Kind = "unexpected_bom"
	KindMissingHighSurrogate Kind = "missing_high_surrogate"
	KindMissingLowSurrogate  Kind = "missing_low_surrogate"
	KindExpectedLowSurrogate Kind = "expected_low_surrogate"
	KindUnsupportedInput     Kind = "unsupported_input"
	KindOutOfMemory          Kind = "out_of_memory"
)

// Reason returns the fixed human-readable reason for the kind.
func (k Kind) Reason() string {
	switch k {
	case KindUnexpectedBOM:
		return "no BOM handling"
	case KindMissingHighSurrogate:
		return "missing high-surrogate code point"
	case KindMissingLowSurrogate:
		return "missing low-surrogate code point"
	case KindExpectedLowSurrogate:
		return "expected low-surrogate code point"
	case KindUnsupportedInput:
		return "unsupported input type"
	case KindOutOfMemory:
		return "out of memory"
	default:
		return string(k)
	}
}

// Code returns a stable positive number for the kind, 0 for unknown kinds.
// Host functions report failures to guests as the negated code.
func (k Kind) Code() int32 {
	switch k {
	case KindUnexpectedBOM:
		return 1
	case KindMissingHighSurrogate:
		return 2
	case KindMissingLowSurrogate:
		return 3
	case KindExpectedLowSurrogate:
		return 4
	case KindUnsupportedInput:
		return 5
	case KindOutOfMemory:
		return 6
	default:
		return 0
	}
}

// KindFromCode is the inverse of Kind.Code.
func KindFromCode(code int32) (Kind, bool) {
	for _, k := range []Kind{
		KindUnexpectedBOM,
		KindMissingHighSurrogate,
		KindMissingLowSurrogate,
		KindExpectedLowSurrogate,
		KindUnsupportedInput,
		KindOutOfMemory,
	} {
		if k.Code() == code {
			return k, true
		}
	}
	return "", false
}

// Error is the structured text error. Start and End are offsets into the
// input unit sequence, End exclusive.
type Error struct {
	Value  any
	Cause  error
	Codec  string
	Kind   Kind
	Detail string
	Start  int
	End    int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Codec != "" {
		b.WriteByte('[')
		b.WriteString(e.Codec)
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.End > e.Start {
		b.WriteString(" at [")
		b.WriteString(strconv.Itoa(e.Start))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(e.End))
		b.WriteByte(')')
	}

	b.WriteString(": ")
	if e.Detail != "" {
		b.WriteString(e.Detail)
	} else {
		b.WriteString(e.Kind.Reason())
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Range returns the offending unit range in the original input.
func (e *Error) Range() (start, end int) {
	return e.Start, e.End
}

// Reason returns the fixed reason string of the error kind.
func (e *Error) Reason() string {
	return e.Kind.Reason()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Codec matches any codec.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Codec != "" && t.Codec != e.Codec {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks against a kind regardless of codec.
var (
	ErrUnexpectedBOM        = &Error{Kind: KindUnexpectedBOM}
	ErrMissingHighSurrogate = &Error{Kind: KindMissingHighSurrogate}
	ErrMissingLowSurrogate  = &Error{Kind: KindMissingLowSurrogate}
	ErrExpectedLowSurrogate = &Error{Kind: KindExpectedLowSurrogate}
	ErrUnsupportedInput     = &Error{Kind: KindUnsupportedInput}
	ErrOutOfMemory          = &Error{Kind: KindOutOfMemory}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(codec string, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Codec: codec,
			Kind:  kind,
		},
	}
}

// Range sets the offending unit range
func (b *Builder) Range(start, end int) *Builder {
	b.err.Start = start
	b.err.End = end
	return b
}

// At sets a single-unit range starting at i
func (b *Builder) At(i int) *Builder {
	return b.Range(i, i+1)
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the decode paths

// UnexpectedBOM creates a byte-order-mark error for the unit at i
func UnexpectedBOM(codec string, i int, unit uint16) *Error {
	return &Error{
		Codec: codec,
		Kind:  KindUnexpectedBOM,
		Start: i,
		End:   i + 1,
		Value: unit,
	}
}

// MissingHighSurrogate creates an error for a low surrogate with no high surrogate before it
func MissingHighSurrogate(codec string, i int, unit uint16) *Error {
	return &Error{
		Codec: codec,
		Kind:  KindMissingHighSurrogate,
		Start: i,
		End:   i + 1,
		Value: unit,
	}
}

// MissingLowSurrogate creates an error for a high surrogate that ends the input
func MissingLowSurrogate(codec string, i int, unit uint16) *Error {
	return &Error{
		Codec: codec,
		Kind:  KindMissingLowSurrogate,
		Start: i,
		End:   i + 1,
		Value: unit,
	}
}

// ExpectedLowSurrogate creates an error for the unit at i that should have
// been a low surrogate following high.
func ExpectedLowSurrogate(codec string, i int, unit, high uint16) *Error {
	return &Error{
		Codec:  codec,
		Kind:   KindExpectedLowSurrogate,
		Start:  i,
		End:    i + 1,
		Value:  unit,
		Detail: fmt.Sprintf("unit %#04x after high surrogate %#04x", unit, high),
	}
}

// UnsupportedInput creates an error for a value that is neither 16-bit units nor bytes
func UnsupportedInput(typeName string) *Error {
	return &Error{
		Kind:   KindUnsupportedInput,
		Detail: fmt.Sprintf("expected 16-bit units or Latin-1 bytes for text: got type %s", typeName),
		Value:  typeName,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(codec string, slots int, cause error) *Error {
	return &Error{
		Codec:  codec,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d scalar slots", slots),
		Value:  slots,
		Cause:  cause,
	}
}
