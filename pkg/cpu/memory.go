package cpu

// Memory is a flat 64 KiB address space with 16-bit wraparound addressing.
// It carries no contention or wait-state model; every access costs the
// T-states the decoder itself attributes to the instruction.
type Memory struct {
	bytes [65536]uint8
}

// NewMemory returns a zeroed 64 KiB image.
func NewMemory() *Memory { return &Memory{} }

// R8 reads one byte, wrapping the address modulo 65536.
func (m *Memory) R8(addr uint16) uint8 { return m.bytes[addr] }

// W8 writes one byte, wrapping the address modulo 65536.
func (m *Memory) W8(addr uint16, v uint8) { m.bytes[addr] = v }

// R16 reads a little-endian 16-bit word.
func (m *Memory) R16(addr uint16) uint16 {
	lo := m.bytes[addr]
	hi := m.bytes[addr+1]
	return uint16(hi)<<8 | uint16(lo)
}

// W16 writes a little-endian 16-bit word.
func (m *Memory) W16(addr uint16, v uint16) {
	m.bytes[addr] = uint8(v)
	m.bytes[addr+1] = uint8(v >> 8)
}

// Load copies data into the image starting at addr, wrapping at 65536.
// This is the "trivial flat-image loader" used by cmd/z80run — it has no
// format intelligence, it is a raw byte copy.
func (m *Memory) Load(addr uint16, data []byte) {
	for i, b := range data {
		m.bytes[addr+uint16(i)] = b
	}
}

// Slice returns a copy of count bytes starting at addr, for snapshotting
// or inspection.
func (m *Memory) Slice(addr uint16, count int) []byte {
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		out[i] = m.bytes[addr+uint16(i)]
	}
	return out
}

// Raw exposes the backing array directly for bulk snapshot I/O.
func (m *Memory) Raw() *[65536]uint8 { return &m.bytes }
