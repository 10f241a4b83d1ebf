// Package glyphtext turns host or guest text into flat sequences of Unicode
// scalar values ready for glyph lookup.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	glyphtext/           Root package with the guest Memory interface
//	├── text/            Normalizer: 16-bit units or Latin-1 bytes to scalars
//	├── canon/           Lifting UTF-16 / Latin-1 strings out of WASM memory
//	├── errors/          Structured error types with exact input ranges
//	└── cmd/textnorm/    CLI and interactive inspector
//
// # Quick Start
//
// Normalize 16-bit units, merging surrogate pairs:
//
//	ds, err := text.Normalize(text.WideUnits{0xD83D, 0xDE00}, true)
//	if err != nil {
//	    var te *errors.Error
//	    if stderrors.As(err, &te) {
//	        start, end := te.Range()
//	        log.Printf("%s at units [%d,%d)", te.Kind, start, end)
//	    }
//	    return err
//	}
//	for _, r := range ds.Scalars() {
//	    glyph := face.Lookup(r)
//	    ...
//	}
//
// Bytes are always Latin-1, one byte per scalar:
//
//	ds, _ := text.Normalize(text.ByteUnits("caf\xe9"), true)
//	// ds.Scalars() == []rune{'c', 'a', 'f', 0xE9}
//
// # Allocation
//
// Normalization validates the whole input before allocating. The output is
// allocated once with exactly Len()+1 slots and the last slot holds a zero
// sentinel. No partial result is ever returned together with an error.
//
// # Thread Safety
//
// All normalization functions are safe for concurrent use as long as callers
// do not mutate the input while a call is in progress. Loggers must be
// installed with SetLogger before first use.
package glyphtext
