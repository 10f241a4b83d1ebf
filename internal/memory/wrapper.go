package memory

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/glyphtext"
)

// WrapMemory wraps a wazero api.Memory to implement glyphtext.Memory.
func WrapMemory(mem api.Memory) *Wrapper {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

var (
	_ glyphtext.Memory      = (*Wrapper)(nil)
	_ glyphtext.MemorySizer = (*Wrapper)(nil)
)

// Wrapper adapts wazero api.Memory to glyphtext.Memory.
type Wrapper struct {
	Mem api.Memory
}

// Read returns a view of length bytes at offset. The view aliases guest
// memory and is only valid until the guest runs again.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}
