package text

import (
	"github.com/wippyai/glyphtext/errors"
)

const (
	bomNative  = 0xFEFF
	bomSwapped = 0xFFFE

	// High surrogates are accepted only up to 0xD8FF. Units in 0xD900-0xDBFF
	// are reported as a missing high surrogate, the same as true low
	// surrogates.
	highStart = 0xD800
	highEnd   = 0xD8FF
	lowStart  = 0xDC00
	lowEnd    = 0xDFFF

	surrogateStart = 0xD800
	surrogateEnd   = 0xDFFF

	surrSelf = 0x10000
)

func isHighSurrogate(c uint16) bool {
	return c >= highStart && c <= highEnd
}

func isLowSurrogate(c uint16) bool {
	return c >= lowStart && c <= lowEnd
}

// ValidateAndMeasure is the first decode pass over 16-bit units. With
// allowPairs it rejects byte-order marks and malformed surrogate pairs and
// returns the number of scalars the merge pass will produce. Without
// allowPairs units are not examined and the length is len(units).
func ValidateAndMeasure(units []uint16, allowPairs bool) (int, error) {
	length := len(units)
	if !allowPairs {
		return length, nil
	}

	for i := 0; i < len(units); i++ {
		c := units[i]
		if c == bomNative || c == bomSwapped {
			return 0, errors.UnexpectedBOM(errors.CodecUTF16, i, c)
		}
		if c < surrogateStart || c > surrogateEnd {
			continue
		}
		if c > highEnd {
			return 0, errors.MissingHighSurrogate(errors.CodecUTF16, i, c)
		}
		i++
		if i == len(units) {
			return 0, errors.MissingLowSurrogate(errors.CodecUTF16, i-1, c)
		}
		if lo := units[i]; !isLowSurrogate(lo) {
			return 0, errors.ExpectedLowSurrogate(errors.CodecUTF16, i, lo, c)
		}
		length--
	}
	return length, nil
}

// Merge is the second decode pass. It writes the scalars of units into dst
// and returns how many were written. units must already have passed
// ValidateAndMeasure with the same allowPairs, and dst must hold at least the
// measured length.
func Merge(units []uint16, dst []rune, allowPairs bool) int {
	j := 0
	for i := 0; i < len(units); j++ {
		c := units[i]
		if allowPairs && isHighSurrogate(c) {
			dst[j] = rune((uint32(c)&0x3FF)<<10|(uint32(units[i+1])&0x3FF)) + surrSelf
			i += 2
			continue
		}
		dst[j] = rune(c)
		i++
	}
	return j
}
