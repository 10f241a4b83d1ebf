package text

import (
	stderrors "errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"

	"github.com/wippyai/glyphtext/errors"
)

func TestNormalize_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		src        Source
		allowPairs bool
		want       []rune
		wantKind   errors.Kind
		wantStart  int
		wantEnd    int
	}{
		{
			name:       "plain BMP units",
			src:        WideUnits{0x0041, 0x0042},
			allowPairs: true,
			want:       []rune{0x41, 0x42},
		},
		{
			name:       "single surrogate pair",
			src:        WideUnits{0xD800, 0xDC00},
			allowPairs: true,
			want:       []rune{0x10000},
		},
		{
			name:       "high surrogate at end",
			src:        WideUnits{0xD800},
			allowPairs: true,
			wantKind:   errors.KindMissingLowSurrogate,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "lone low surrogate",
			src:        WideUnits{0xDC00},
			allowPairs: true,
			wantKind:   errors.KindMissingHighSurrogate,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "native BOM",
			src:        WideUnits{0xFEFF},
			allowPairs: true,
			wantKind:   errors.KindUnexpectedBOM,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "latin-1 bytes are not UTF-8 decoded",
			src:        ByteUnits{0xC3, 0xA9},
			allowPairs: true,
			want:       []rune{0xC3, 0xA9},
		},
		{
			name:       "swapped BOM mid-string",
			src:        WideUnits{0x0041, 0x0042, 0xFFFE, 0x0043},
			allowPairs: true,
			wantKind:   errors.KindUnexpectedBOM,
			wantStart:  2,
			wantEnd:    3,
		},
		{
			name:       "high surrogate followed by BMP unit",
			src:        WideUnits{0x0061, 0xD801, 0x0062},
			allowPairs: true,
			wantKind:   errors.KindExpectedLowSurrogate,
			wantStart:  2,
			wantEnd:    3,
		},
		{
			name:       "high surrogate followed by high surrogate",
			src:        WideUnits{0xD800, 0xD800, 0xDC00},
			allowPairs: true,
			wantKind:   errors.KindExpectedLowSurrogate,
			wantStart:  1,
			wantEnd:    2,
		},
		{
			name:       "high surrogate at end after pair",
			src:        WideUnits{0xD800, 0xDC00, 0x0041, 0xD8FF},
			allowPairs: true,
			wantKind:   errors.KindMissingLowSurrogate,
			wantStart:  3,
			wantEnd:    4,
		},
		{
			name:       "two low surrogates after pair",
			src:        WideUnits{0xD800, 0xDC00, 0xDC01},
			allowPairs: true,
			wantKind:   errors.KindMissingHighSurrogate,
			wantStart:  2,
			wantEnd:    3,
		},
		{
			name:       "unit above high range is not a high surrogate",
			src:        WideUnits{0xD900, 0xDC00},
			allowPairs: true,
			wantKind:   errors.KindMissingHighSurrogate,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "last surrogate unit is a low surrogate",
			src:        WideUnits{0xDFFF},
			allowPairs: true,
			wantKind:   errors.KindMissingHighSurrogate,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "BOM after high surrogate is expected-low",
			src:        WideUnits{0xD800, 0xFEFF},
			allowPairs: true,
			wantKind:   errors.KindExpectedLowSurrogate,
			wantStart:  1,
			wantEnd:    2,
		},
		{
			name:       "first error wins",
			src:        WideUnits{0xDC00, 0xFEFF},
			allowPairs: true,
			wantKind:   errors.KindMissingHighSurrogate,
			wantStart:  0,
			wantEnd:    1,
		},
		{
			name:       "mixed pairs and BMP",
			src:        WideUnits{0x0048, 0xD83D, 0xDE00, 0x0069, 0xD8FF, 0xDFFF},
			allowPairs: true,
			want:       []rune{0x48, 0x1F600, 0x69, 0x4FFFF},
		},
		{
			name:       "raw mode passes surrogates through",
			src:        WideUnits{0xDC00, 0xD800, 0xFEFF},
			allowPairs: false,
			want:       []rune{0xDC00, 0xD800, 0xFEFF},
		},
		{
			name:       "raw mode does not merge pairs",
			src:        WideUnits{0xD800, 0xDC00},
			allowPairs: false,
			want:       []rune{0xD800, 0xDC00},
		},
		{
			name:       "empty wide",
			src:        WideUnits{},
			allowPairs: true,
			want:       []rune{},
		},
		{
			name:       "nil wide",
			src:        WideUnits(nil),
			allowPairs: true,
			want:       []rune{},
		},
		{
			name: "empty bytes",
			src:  ByteUnits{},
			want: []rune{},
		},
		{
			name: "bytes ignore allowPairs",
			src:  ByteUnits{0x00, 0x7F, 0xFF},
			want: []rune{0x00, 0x7F, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Normalize(tt.src, tt.allowPairs)

			if tt.wantKind != "" {
				if ds != nil {
					t.Errorf("got result %v alongside error", ds.Scalars())
				}
				var te *errors.Error
				if !stderrors.As(err, &te) {
					t.Fatalf("error = %v, want *errors.Error", err)
				}
				if te.Kind != tt.wantKind {
					t.Errorf("Kind = %v, want %v", te.Kind, tt.wantKind)
				}
				if start, end := te.Range(); start != tt.wantStart || end != tt.wantEnd {
					t.Errorf("Range = [%d,%d), want [%d,%d)", start, end, tt.wantStart, tt.wantEnd)
				}
				if te.Codec != errors.CodecUTF16 {
					t.Errorf("Codec = %q, want %q", te.Codec, errors.CodecUTF16)
				}
				return
			}

			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if ds.Len() != len(tt.want) {
				t.Errorf("Len = %d, want %d", ds.Len(), len(tt.want))
			}
			if !slices.Equal(ds.Scalars(), tt.want) {
				t.Errorf("Scalars = %#x, want %#x", ds.Scalars(), tt.want)
			}
			assertSentinel(t, ds)
		})
	}
}

func assertSentinel(t *testing.T, ds *DecodedString) {
	t.Helper()
	raw := ds.Raw()
	if len(raw) != ds.Len()+1 {
		t.Fatalf("len(Raw) = %d, want %d", len(raw), ds.Len()+1)
	}
	if raw[ds.Len()] != 0 {
		t.Errorf("sentinel = %#x, want 0", raw[ds.Len()])
	}
	if cap(ds.Scalars()) < len(raw) {
		t.Errorf("Scalars should share storage with Raw")
	}
}

type foreignSource struct{}

func (foreignSource) Units() int { return 0 }
func (foreignSource) Kind() string { return "foreign" }
func (foreignSource) isSource() {}

type countingAllocator struct {
	calls int
}

func (c *countingAllocator) Alloc(slots int) ([]rune, error) {
	c.calls++
	return make([]rune, slots), nil
}

func TestNormalize_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		wantType string
	}{
		{"nil source", nil, "nil"},
		{"foreign implementation", foreignSource{}, "text.foreignSource"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := &countingAllocator{}
			ds, err := New().WithAllocator(alloc).Normalize(tt.src, true)
			if ds != nil {
				t.Error("unsupported input must not produce a result")
			}
			if !stderrors.Is(err, errors.ErrUnsupportedInput) {
				t.Fatalf("error = %v, want unsupported input", err)
			}
			if !strings.Contains(err.Error(), tt.wantType) {
				t.Errorf("error %q should name type %q", err.Error(), tt.wantType)
			}
			if alloc.calls != 0 {
				t.Errorf("allocator called %d times, want 0", alloc.calls)
			}
		})
	}
}

func TestNormalize_NoAllocationOnValidationFailure(t *testing.T) {
	alloc := &countingAllocator{}
	n := New().WithAllocator(alloc)

	inputs := []WideUnits{
		{0xFEFF},
		{0xDC00},
		{0xD800},
		{0xD800, 0x0041},
		{0x0041, 0x0042, 0x0043, 0xD800},
	}
	for _, in := range inputs {
		if _, err := n.Normalize(in, true); err == nil {
			t.Errorf("Normalize(%#x) succeeded, want error", []uint16(in))
		}
	}
	if alloc.calls != 0 {
		t.Errorf("allocator called %d times, want 0", alloc.calls)
	}

	if _, err := n.Normalize(WideUnits{0xD800, 0xDC00}, true); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if alloc.calls != 1 {
		t.Errorf("allocator called %d times for one success, want 1", alloc.calls)
	}
}

type sizeRecorder struct {
	sizes []int
}

func (s *sizeRecorder) Alloc(slots int) ([]rune, error) {
	s.sizes = append(s.sizes, slots)
	return make([]rune, slots), nil
}

func TestNormalize_ExactAllocation(t *testing.T) {
	tests := []struct {
		name  string
		src   Source
		pairs bool
		slots int
	}{
		{"two pairs", WideUnits{0xD800, 0xDC00, 0x41, 0xD801, 0xDC01}, true, 4},
		{"raw mode", WideUnits{0xD800, 0xDC00, 0x41}, false, 4},
		{"bytes", ByteUnits("hello"), true, 6},
		{"empty", WideUnits{}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sizeRecorder{}
			if _, err := New().WithAllocator(rec).Normalize(tt.src, tt.pairs); err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if len(rec.sizes) != 1 || rec.sizes[0] != tt.slots {
				t.Errorf("allocations = %v, want [%d]", rec.sizes, tt.slots)
			}
		})
	}
}

func TestNormalize_OutOfMemory(t *testing.T) {
	tests := []struct {
		name      string
		src       Source
		budget    int
		wantCodec string
	}{
		{"wide over budget", WideUnits{0x41, 0x42, 0x43}, 3, errors.CodecUTF16},
		{"bytes over budget", ByteUnits{1, 2, 3, 4}, 2, errors.CodecLatin1},
		{"empty needs sentinel slot", ByteUnits{}, 0, errors.CodecLatin1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New().WithAllocator(LimitAllocator{Budget: tt.budget})
			ds, err := n.Normalize(tt.src, true)
			if ds != nil {
				t.Error("result returned alongside allocation failure")
			}
			var te *errors.Error
			if !stderrors.As(err, &te) {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if te.Kind != errors.KindOutOfMemory {
				t.Errorf("Kind = %v, want %v", te.Kind, errors.KindOutOfMemory)
			}
			if te.Codec != tt.wantCodec {
				t.Errorf("Codec = %q, want %q", te.Codec, tt.wantCodec)
			}
			if !stderrors.Is(err, ErrSlotLimit) {
				t.Errorf("error should wrap ErrSlotLimit: %v", err)
			}
		})
	}

	t.Run("budget exactly length plus one", func(t *testing.T) {
		n := New().WithAllocator(LimitAllocator{Budget: 4})
		ds, err := n.Normalize(WideUnits{0x41, 0x42, 0x43}, true)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		assertSentinel(t, ds)
	})

	t.Run("validation error takes precedence", func(t *testing.T) {
		n := New().WithAllocator(LimitAllocator{Budget: 0})
		_, err := n.Normalize(WideUnits{0xDC00}, true)
		if !stderrors.Is(err, errors.ErrMissingHighSurrogate) {
			t.Errorf("error = %v, want missing high surrogate", err)
		}
	})
}

type shortAllocator struct{}

func (shortAllocator) Alloc(slots int) ([]rune, error) {
	return make([]rune, slots-1), nil
}

func TestNormalize_ShortAllocatorIsOutOfMemory(t *testing.T) {
	_, err := New().WithAllocator(shortAllocator{}).Normalize(ByteUnits("ab"), true)
	if !stderrors.Is(err, errors.ErrOutOfMemory) {
		t.Errorf("error = %v, want out of memory", err)
	}
}

func TestNormalize_SentinelOverwritesDirtyStorage(t *testing.T) {
	dirty := allocFunc(func(slots int) ([]rune, error) {
		buf := make([]rune, slots)
		for i := range buf {
			buf[i] = -1
		}
		return buf, nil
	})
	ds, err := New().WithAllocator(dirty).Normalize(WideUnits{0xD800, 0xDC00, 0x41}, true)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !slices.Equal(ds.Scalars(), []rune{0x10000, 0x41}) {
		t.Errorf("Scalars = %#x", ds.Scalars())
	}
	assertSentinel(t, ds)
}

type allocFunc func(int) ([]rune, error)

func (f allocFunc) Alloc(slots int) ([]rune, error) { return f(slots) }

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []rune
		wantErr bool
	}{
		{"uint16 slice", []uint16{0xD800, 0xDC00}, []rune{0x10000}, false},
		{"WideUnits", WideUnits{0x41}, []rune{0x41}, false},
		{"byte slice", []byte{0xE9}, []rune{0xE9}, false},
		{"ByteUnits", ByteUnits{0x41}, []rune{0x41}, false},
		{"string rejected", "hello", nil, true},
		{"int rejected", 42, nil, true},
		{"nil rejected", nil, nil, true},
		{"rune slice rejected", []rune{0x41}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NormalizeValue(tt.value, true)
			if tt.wantErr {
				if !stderrors.Is(err, errors.ErrUnsupportedInput) {
					t.Errorf("error = %v, want unsupported input", err)
				}
				if ds != nil {
					t.Error("result returned alongside error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeValue: %v", err)
			}
			if !slices.Equal(ds.Scalars(), tt.want) {
				t.Errorf("Scalars = %#x, want %#x", ds.Scalars(), tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	src, err := Classify([]uint16{1, 2, 3})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if _, ok := src.(WideUnits); !ok || src.Units() != 3 || src.Kind() != "wide" {
		t.Errorf("Classify([]uint16) = %T(%d, %s)", src, src.Units(), src.Kind())
	}

	src, err = Classify([]byte("ab"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if _, ok := src.(ByteUnits); !ok || src.Units() != 2 || src.Kind() != "bytes" {
		t.Errorf("Classify([]byte) = %T(%d, %s)", src, src.Units(), src.Kind())
	}

	_, err = Classify(3.5)
	var te *errors.Error
	if !stderrors.As(err, &te) || te.Value != "float64" {
		t.Errorf("Classify(3.5) error = %v, want type float64", err)
	}
}

func TestNormalize_BMPProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		units := make(WideUnits, r.IntN(64))
		for i := range units {
			for {
				c := uint16(r.IntN(0x10000))
				if (c >= surrogateStart && c <= surrogateEnd) || c == bomNative || c == bomSwapped {
					continue
				}
				units[i] = c
				break
			}
		}

		ds, err := Normalize(units, true)
		if err != nil {
			t.Fatalf("Normalize(%#x): %v", []uint16(units), err)
		}
		if ds.Len() != len(units) {
			t.Fatalf("Len = %d, want %d", ds.Len(), len(units))
		}
		for i, c := range units {
			if ds.At(i) != rune(c) {
				t.Fatalf("scalar %d = %#x, want %#x", i, ds.At(i), c)
			}
		}
		assertSentinel(t, ds)
	}
}

func TestNormalize_PairProperty(t *testing.T) {
	for hi := uint16(highStart); hi <= highEnd; hi += 0x11 {
		for lo := uint16(lowStart); lo <= lowEnd && lo >= lowStart; lo += 0x7F {
			ds, err := Normalize(WideUnits{hi, lo}, true)
			if err != nil {
				t.Fatalf("Normalize(%#x, %#x): %v", hi, lo, err)
			}
			want := rune((uint32(hi)&0x3FF)<<10|(uint32(lo)&0x3FF)) + 0x10000
			if ds.Len() != 1 || ds.At(0) != want {
				t.Fatalf("Normalize(%#x, %#x) = %#x, want [%#x]", hi, lo, ds.Scalars(), want)
			}
			if want < 0x10000 || want > 0x10FFFF {
				t.Fatalf("merged scalar %#x outside supplementary planes", want)
			}
		}
	}
}

func TestNormalize_LengthShrinksByPairs(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 100; iter++ {
		var units WideUnits
		pairs := 0
		for n := r.IntN(40); n > 0; n-- {
			if r.IntN(3) == 0 {
				units = append(units, uint16(highStart+r.IntN(highEnd-highStart+1)), uint16(lowStart+r.IntN(lowEnd-lowStart+1)))
				pairs++
			} else {
				units = append(units, uint16(0x20+r.IntN(0x7000)))
			}
		}

		length, err := ValidateAndMeasure(units, true)
		if err != nil {
			t.Fatalf("ValidateAndMeasure: %v", err)
		}
		if length != len(units)-pairs {
			t.Fatalf("length = %d, want %d", length, len(units)-pairs)
		}

		ds, err := Normalize(units, true)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if ds.Len() != length || ds.Len() > len(units) {
			t.Fatalf("Len = %d, measured %d, input %d", ds.Len(), length, len(units))
		}
	}
}

func TestNormalize_BytesMatchISO8859_1(t *testing.T) {
	all := make(ByteUnits, 256)
	for i := range all {
		all[i] = byte(i)
	}

	ds, err := Normalize(all, true)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ds.Len() != 256 {
		t.Fatalf("Len = %d, want 256", ds.Len())
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(all)
	if err != nil {
		t.Fatalf("charmap decode: %v", err)
	}
	want := []rune(string(decoded))
	if !slices.Equal(ds.Scalars(), want) {
		t.Errorf("Latin-1 expansion disagrees with ISO-8859-1 decoding")
	}
	assertSentinel(t, ds)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []Source{
		WideUnits{0x48, 0xD83D, 0xDE00, 0x69},
		ByteUnits{0xC3, 0xA9, 0x00},
		WideUnits{},
	}
	for _, in := range inputs {
		a, err := Normalize(in, true)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		b, err := Normalize(in, true)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if !slices.Equal(a.Raw(), b.Raw()) {
			t.Errorf("outputs differ: %#x vs %#x", a.Raw(), b.Raw())
		}
		if len(a.Raw()) > 0 && &a.Raw()[0] == &b.Raw()[0] {
			t.Error("results share storage")
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	units := WideUnits{0xD800, 0xDC00, 0x41}
	orig := slices.Clone(units)
	ds, err := Normalize(units, true)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	ds.Raw()[0] = 0x42
	if !slices.Equal(units, orig) {
		t.Errorf("input mutated: %#x", []uint16(units))
	}
}

func TestNormalize_Concurrent(t *testing.T) {
	units := WideUnits{0x48, 0xD83D, 0xDE00, 0x69, 0xD800, 0xDC00}
	want := []rune{0x48, 0x1F600, 0x69, 0x10000}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ds, err := Normalize(units, true)
				if err != nil {
					errs <- err.Error()
					return
				}
				if !slices.Equal(ds.Scalars(), want) {
					errs <- "mismatched scalars"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestNormalize_LogsRejections(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	if _, err := Normalize(WideUnits{0x41, 0xDC00}, true); err == nil {
		t.Fatal("expected error")
	}

	entries := logs.FilterMessage("text rejected").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["kind"] != string(errors.KindMissingHighSurrogate) {
		t.Errorf("kind field = %v", fields["kind"])
	}
	if fields["start"] != int64(1) || fields["end"] != int64(2) {
		t.Errorf("range fields = %v..%v, want 1..2", fields["start"], fields["end"])
	}
}
