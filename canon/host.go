package canon

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/glyphtext"
	"github.com/wippyai/glyphtext/errors"
	"github.com/wippyai/glyphtext/internal/memory"
	"github.com/wippyai/glyphtext/text"
)

// HostModuleName is the import module guests use for the decode functions.
const HostModuleName = "glyph:text/decode@0.1.0"

// Status codes returned to guests as negative i64 results, beyond the
// errors.Kind codes.
const (
	CodeShortBuffer int64 = 100 + iota
	CodeMemory
	CodeEncoding
	CodeMisaligned
	CodeCanceled
)

// Host implements the decode host functions.
type Host struct {
	normalizer *text.Normalizer
}

// NewHost creates a Host using the given normalizer, or a heap-backed one if nil.
func NewHost(n *text.Normalizer) *Host {
	if n == nil {
		n = text.New()
	}
	return &Host{normalizer: n}
}

// Measure returns the number of scalars the guest string decodes to, or a
// negative status code.
func (h *Host) Measure(ctx context.Context, mem glyphtext.Memory, ptr, units uint32, enc StringEncoding) int64 {
	ds, err := h.lift(ctx, mem, ptr, units, enc)
	if err != nil {
		return statusFor(err)
	}
	return int64(ds.Len())
}

// Decode normalizes the guest string and writes Len()+1 little-endian u32
// scalars, sentinel included, at out. capacity counts u32 slots. It returns
// Len() or a negative status code; nothing is written on failure.
func (h *Host) Decode(ctx context.Context, mem glyphtext.Memory, ptr, units uint32, enc StringEncoding, out, capacity uint32) int64 {
	ds, err := h.lift(ctx, mem, ptr, units, enc)
	if err != nil {
		return statusFor(err)
	}
	if uint64(len(ds.Raw())) > uint64(capacity) {
		Logger().Debug("decode buffer too small",
			zap.Int("need", len(ds.Raw())),
			zap.Uint32("capacity", capacity))
		return -CodeShortBuffer
	}
	if sizer, ok := mem.(glyphtext.MemorySizer); ok {
		if size, ok := ScalarsSize(ds); !ok || uint64(out)+uint64(size) > uint64(sizer.Size()) {
			return -CodeMemory
		}
	}
	if err := WriteScalars(mem, out, ds); err != nil {
		return statusFor(err)
	}
	return int64(ds.Len())
}

func (h *Host) lift(ctx context.Context, mem glyphtext.Memory, ptr, units uint32, enc StringEncoding) (*text.DecodedString, error) {
	lc := NewLiftContext(ctx, CanonicalOptions{
		Memory:     mem,
		Normalizer: h.normalizer,
		Encoding:   enc,
	})
	ds, err := LiftString(lc, ptr, units)
	if err != nil {
		Logger().Debug("lift string failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("units", units),
			zap.Stringer("encoding", enc),
			zap.Error(err))
		return nil, err
	}
	return ds, nil
}

// statusFor maps an error onto the negative status returned to guests.
func statusFor(err error) int64 {
	var te *errors.Error
	switch {
	case stderrors.As(err, &te):
		return -int64(te.Kind.Code())
	case stderrors.Is(err, ErrUnsupportedEncoding):
		return -CodeEncoding
	case stderrors.Is(err, ErrMisaligned):
		return -CodeMisaligned
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return -CodeCanceled
	default:
		return -CodeMemory
	}
}

// HostModuleBuilder builds the decode host module for a wazero runtime.
type HostModuleBuilder struct {
	runtime wazero.Runtime
	host    *Host
	name    string
}

// NewHostModule starts building the decode host module.
func NewHostModule(rt wazero.Runtime) *HostModuleBuilder {
	return &HostModuleBuilder{
		runtime: rt,
		host:    NewHost(nil),
		name:    HostModuleName,
	}
}

// WithNormalizer sets the normalizer used by the host functions
func (b *HostModuleBuilder) WithNormalizer(n *text.Normalizer) *HostModuleBuilder {
	b.host = NewHost(n)
	return b
}

// WithName overrides the import module name
func (b *HostModuleBuilder) WithName(name string) *HostModuleBuilder {
	b.name = name
	return b
}

// Build instantiates the host module into the wazero runtime.
//
// Exports:
//
//	measure(ptr: i32, units: i32, encoding: i32) -> i64
//	decode(ptr: i32, units: i32, encoding: i32, out: i32, cap: i32) -> i64
func (b *HostModuleBuilder) Build(ctx context.Context) (api.Module, error) {
	i32 := api.ValueTypeI32
	builder := b.runtime.NewHostModuleBuilder(b.name)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(b.measure), []api.ValueType{i32, i32, i32}, []api.ValueType{api.ValueTypeI64}).
		WithParameterNames("ptr", "units", "encoding").
		Export("measure")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(b.decode), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{api.ValueTypeI64}).
		WithParameterNames("ptr", "units", "encoding", "out", "cap").
		Export("decode")

	return builder.Instantiate(ctx)
}

func (b *HostModuleBuilder) measure(ctx context.Context, m api.Module, stack []uint64) {
	res := b.host.Measure(ctx, guestMemory(m),
		api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), StringEncoding(api.DecodeU32(stack[2])))
	stack[0] = uint64(res)
}

func (b *HostModuleBuilder) decode(ctx context.Context, m api.Module, stack []uint64) {
	res := b.host.Decode(ctx, guestMemory(m),
		api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), StringEncoding(api.DecodeU32(stack[2])),
		api.DecodeU32(stack[3]), api.DecodeU32(stack[4]))
	stack[0] = uint64(res)
}

// guestMemory returns the caller's memory, or nil without a typed-nil wrapper.
func guestMemory(m api.Module) glyphtext.Memory {
	if m == nil {
		return nil
	}
	if w := memory.WrapMemory(m.Memory()); w != nil {
		return w
	}
	return nil
}
