// Package memory adapts wazero linear memory to glyphtext.Memory.
//
//	mem := memory.WrapMemory(instance.ExportedMemory("memory"))
//	// mem implements glyphtext.Memory and glyphtext.MemorySizer
//
// Multi-byte values are little-endian, matching the canonical ABI. This
// package is internal to glyphtext and should not be used directly.
package memory
