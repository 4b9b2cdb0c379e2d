/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package fieldmap

// Descriptor is an immutable-after-build field location within a payload.
// Built once by a structure-declaration binding (consumed, not defined
// here) and read-only from then on.
type Descriptor struct {
	Path   string // dot-joined nested name, e.g. "velocity.x"
	Offset int    // byte offset from payload start
	Size   int    // size in bytes
	Kind   Kind

	IsBitfield bool
	BitOffset  uint8
	BitWidth   uint8

	IsArray        bool
	ArrayCount     int
	NullTerminated bool
}

// Valid reports size > 0, and bit-width in [1,64] when this is a bitfield.
func (d Descriptor) Valid() bool {
	if d.Size <= 0 {
		return false
	}
	if d.IsBitfield && (d.BitWidth < 1 || d.BitWidth > 64) {
		return false
	}
	return true
}

// FieldMap is the ordered, name-indexed set of descriptors for one
// packet-id, built once and consulted read-only from many threads
// thereafter.
type FieldMap struct {
	PacketID         uint32
	StructureName    string
	Fields           []Descriptor
	TotalPayloadSize int

	index map[string]int
}

// Build constructs a FieldMap from an ordered descriptor list, computing
// the name->index lookup once.
func Build(packetID uint32, structureName string, fields []Descriptor) *FieldMap {
	m := &FieldMap{
		PacketID:      packetID,
		StructureName: structureName,
		Fields:        fields,
		index:         make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		m.index[f.Path] = i
		if end := f.Offset + f.Size; end > m.TotalPayloadSize {
			m.TotalPayloadSize = end
		}
	}
	return m
}

// IndexOf resolves a field path to its descriptor index in one lookup;
// extraction by name costs exactly one map lookup, then proceeds by index.
func (m *FieldMap) IndexOf(path string) (int, bool) {
	i, ok := m.index[path]
	return i, ok
}

func (m *FieldMap) Descriptor(i int) Descriptor { return m.Fields[i] }
