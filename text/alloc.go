package text

import (
	stderrors "errors"
	"fmt"
	"math"

	"github.com/wippyai/glyphtext/errors"
)

// DefaultMaxScalars caps a single output buffer, sentinel included.
const DefaultMaxScalars = 1 << 28

// ErrSlotLimit is the cause reported when a request exceeds an allocator limit.
var ErrSlotLimit = stderrors.New("scalar slot limit exceeded")

// Allocator provides storage for normalized output. Alloc must return a
// zeroed slice of exactly slots elements or an error.
type Allocator interface {
	Alloc(slots int) ([]rune, error)
}

// HeapAllocator allocates on the Go heap up to MaxScalars slots per request.
// The zero value uses DefaultMaxScalars.
type HeapAllocator struct {
	MaxScalars int
}

// Alloc implements Allocator.
func (h HeapAllocator) Alloc(slots int) ([]rune, error) {
	limit := h.MaxScalars
	if limit <= 0 {
		limit = DefaultMaxScalars
	}
	if slots < 0 || slots > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrSlotLimit, slots, limit)
	}
	return make([]rune, slots), nil
}

// LimitAllocator fails every request larger than Budget slots. It lets
// embedders bound per-call memory and tests force allocation failure.
type LimitAllocator struct {
	Budget int
}

// Alloc implements Allocator.
func (l LimitAllocator) Alloc(slots int) ([]rune, error) {
	if slots < 0 || slots > l.Budget {
		return nil, fmt.Errorf("%w: %d > %d", ErrSlotLimit, slots, l.Budget)
	}
	return make([]rune, slots), nil
}

// DecodedString is an owned sequence of scalar values. Its backing storage
// always has Len()+1 slots; the last one is a zero sentinel. The zero value
// is an empty string.
type DecodedString struct {
	data []rune
}

// Len returns the number of scalars, not counting the sentinel.
func (d *DecodedString) Len() int {
	if len(d.data) == 0 {
		return 0
	}
	return len(d.data) - 1
}

// Scalars returns the scalar values without the sentinel.
func (d *DecodedString) Scalars() []rune {
	if len(d.data) == 0 {
		return nil
	}
	return d.data[:len(d.data)-1]
}

// Raw returns the scalar values followed by the zero sentinel.
func (d *DecodedString) Raw() []rune {
	if len(d.data) == 0 {
		return []rune{0}
	}
	return d.data
}

// At returns the scalar at index i.
func (d *DecodedString) At(i int) rune {
	return d.Scalars()[i]
}

// allocate reserves length+1 slots for a DecodedString. Any allocator failure,
// including a wrongly sized slice, is reported as out of memory and nothing is
// returned.
func allocate(a Allocator, codec string, length int) (*DecodedString, error) {
	if length < 0 || length >= math.MaxInt {
		return nil, errors.OutOfMemory(codec, length, ErrSlotLimit)
	}
	slots := length + 1
	data, err := a.Alloc(slots)
	if err != nil {
		return nil, errors.OutOfMemory(codec, slots, err)
	}
	if len(data) != slots {
		return nil, errors.OutOfMemory(codec, slots,
			fmt.Errorf("allocator returned %d slots", len(data)))
	}
	return &DecodedString{data: data}, nil
}

// seal writes the sentinel after the fill pass.
func (d *DecodedString) seal() *DecodedString {
	d.data[len(d.data)-1] = 0
	return d
}
