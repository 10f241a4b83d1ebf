package text

import (
	stderrors "errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/glyphtext/errors"
)

// Normalizer converts a Source into a DecodedString using its allocator.
type Normalizer struct {
	alloc Allocator
}

// New creates a Normalizer backed by a HeapAllocator.
func New() *Normalizer {
	return &Normalizer{alloc: HeapAllocator{}}
}

// WithAllocator sets the allocator for output buffers
func (n *Normalizer) WithAllocator(a Allocator) *Normalizer {
	if a == nil {
		a = HeapAllocator{}
	}
	n.alloc = a
	return n
}

var defaultNormalizer = New()

// Normalize converts src using the default heap-backed Normalizer.
func Normalize(src Source, allowPairs bool) (*DecodedString, error) {
	return defaultNormalizer.Normalize(src, allowPairs)
}

// NormalizeValue classifies v and normalizes it.
func NormalizeValue(v any, allowPairs bool) (*DecodedString, error) {
	src, err := Classify(v)
	if err != nil {
		logReject(err, 0)
		return nil, err
	}
	return Normalize(src, allowPairs)
}

// Normalize converts src into scalar values.
//
// WideUnits are validated in full before anything is allocated; with
// allowPairs, surrogate pairs are merged and byte-order marks rejected.
// ByteUnits are widened one byte per scalar. Errors are *errors.Error values
// with ranges into src; no DecodedString accompanies an error.
func (n *Normalizer) Normalize(src Source, allowPairs bool) (*DecodedString, error) {
	switch s := src.(type) {
	case WideUnits:
		length, err := ValidateAndMeasure(s, allowPairs)
		if err != nil {
			logReject(err, len(s))
			return nil, err
		}
		ds, err := allocate(n.alloc, errors.CodecUTF16, length)
		if err != nil {
			logReject(err, len(s))
			return nil, err
		}
		Merge(s, ds.data, allowPairs)
		return ds.seal(), nil

	case ByteUnits:
		ds, err := allocate(n.alloc, errors.CodecLatin1, len(s))
		if err != nil {
			logReject(err, len(s))
			return nil, err
		}
		Expand(s, ds.data)
		return ds.seal(), nil

	default:
		err := errors.UnsupportedInput(typeName(src))
		logReject(err, 0)
		return nil, err
	}
}

func logReject(err error, units int) {
	var te *errors.Error
	if !stderrors.As(err, &te) {
		return
	}
	Logger().Debug("text rejected",
		zap.String("codec", te.Codec),
		zap.String("kind", string(te.Kind)),
		zap.Int("start", te.Start),
		zap.Int("end", te.End),
		zap.Int("units", units),
		zap.Error(te.Cause))
}

// typeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}
