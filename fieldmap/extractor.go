/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package fieldmap

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/packet"
)

// byteOrder is fixed at little-endian; the pipeline's own captures always
// round-trip because Encode/decode in package packet use the same order
// consistently.
var byteOrder = binary.LittleEndian

// Result is one field's extraction outcome: either a Value or an error,
// carried in a map rather than aborting the whole batch.
type Result struct {
	Value Value
	Err   error
}

// Extractor holds the bound field maps for every packet-id currently known
// to the pipeline. Binding/unbinding is writer-exclusive; extraction is
// read-only and lock-free per descriptor once resolved by index.
type Extractor struct {
	mu   sync.RWMutex
	maps map[uint32]*FieldMap
}

func NewExtractor() *Extractor {
	return &Extractor{maps: make(map[uint32]*FieldMap)}
}

// Bind associates a field map with its packet-id, replacing any prior
// binding (e.g. on structure redefinition).
func (e *Extractor) Bind(m *FieldMap) {
	e.mu.Lock()
	e.maps[m.PacketID] = m
	e.mu.Unlock()
}

// Unbind removes a packet-id's field map.
func (e *Extractor) Unbind(packetID uint32) {
	e.mu.Lock()
	delete(e.maps, packetID)
	e.mu.Unlock()
}

// MapFor returns the field map bound to packetID, if any.
func (e *Extractor) MapFor(packetID uint32) (*FieldMap, bool) {
	e.mu.RLock()
	m, ok := e.maps[packetID]
	e.mu.RUnlock()
	return m, ok
}

// Extract decodes one field by descriptor. Pure: calling it twice with the
// same (packet, descriptor) always yields the same result. Allocates
// nothing beyond the returned Value/error.
func (e *Extractor) Extract(pkt *packet.Packet, d Descriptor) (Value, error) {
	payload := pkt.Payload()
	if d.Offset < 0 || d.Size <= 0 || d.Offset+d.Size > len(payload) {
		return Value{}, cos.NewErrExtraction(d.Path, cos.ExtractOutOfBounds)
	}
	field := payload[d.Offset : d.Offset+d.Size]

	switch {
	case d.IsBitfield:
		return extractBitfield(field, d)
	case d.IsArray:
		return extractArray(field, d), nil
	default:
		return extractPrimitive(field, d)
	}
}

// ExtractByName resolves path against the packet's bound field map (one
// lookup), then extracts by descriptor.
func (e *Extractor) ExtractByName(pkt *packet.Packet, path string) (Value, error) {
	m, ok := e.MapFor(pkt.ID())
	if !ok {
		return Value{}, cos.NewErrExtraction(path, cos.ExtractNotFound)
	}
	i, ok := m.IndexOf(path)
	if !ok {
		return Value{}, cos.NewErrExtraction(path, cos.ExtractNotFound)
	}
	return e.Extract(pkt, m.Fields[i])
}

// ExtractMany looks up each requested path; unknown names yield a NotFound
// Result but never abort the batch.
func (e *Extractor) ExtractMany(pkt *packet.Packet, paths []string) map[string]Result {
	out := make(map[string]Result, len(paths))
	m, ok := e.MapFor(pkt.ID())
	for _, path := range paths {
		if !ok {
			out[path] = Result{Err: cos.NewErrExtraction(path, cos.ExtractNotFound)}
			continue
		}
		i, ok := m.IndexOf(path)
		if !ok {
			out[path] = Result{Err: cos.NewErrExtraction(path, cos.ExtractNotFound)}
			continue
		}
		v, err := e.Extract(pkt, m.Fields[i])
		out[path] = Result{Value: v, Err: err}
	}
	return out
}

// ExtractAll decodes every descriptor bound for the packet's id.
func (e *Extractor) ExtractAll(pkt *packet.Packet) map[string]Result {
	m, ok := e.MapFor(pkt.ID())
	if !ok {
		return nil
	}
	out := make(map[string]Result, len(m.Fields))
	for _, d := range m.Fields {
		v, err := e.Extract(pkt, d)
		out[d.Path] = Result{Value: v, Err: err}
	}
	return out
}

func extractPrimitive(field []byte, d Descriptor) (Value, error) {
	switch d.Kind {
	case KindBool:
		return ValueBool(field[0] != 0), nil
	case KindInt8:
		return ValueInt64(d.Kind, int64(int8(field[0]))), nil
	case KindUint8:
		return ValueUint64(d.Kind, uint64(field[0])), nil
	case KindInt16:
		return ValueInt64(d.Kind, int64(int16(byteOrder.Uint16(field)))), nil
	case KindUint16:
		return ValueUint64(d.Kind, uint64(byteOrder.Uint16(field))), nil
	case KindInt32:
		return ValueInt64(d.Kind, int64(int32(byteOrder.Uint32(field)))), nil
	case KindUint32:
		return ValueUint64(d.Kind, uint64(byteOrder.Uint32(field))), nil
	case KindInt64:
		return ValueInt64(d.Kind, int64(byteOrder.Uint64(field))), nil
	case KindUint64:
		return ValueUint64(d.Kind, byteOrder.Uint64(field)), nil
	case KindFloat32:
		return ValueFloat32(math.Float32frombits(byteOrder.Uint32(field))), nil
	case KindFloat64:
		return ValueFloat64(math.Float64frombits(byteOrder.Uint64(field))), nil
	default:
		// unknown type tag: return raw bytes
		cp := make([]byte, len(field))
		copy(cp, field)
		return ValueBytes(cp), nil
	}
}

// extractArray handles char/unsigned-char arrays: null-terminated strings
// truncate at the first null (or declared size); otherwise a raw byte
// sequence of declared length.
func extractArray(field []byte, d Descriptor) Value {
	if d.NullTerminated {
		if idx := bytes.IndexByte(field, 0); idx >= 0 {
			return ValueString(string(field[:idx]))
		}
		return ValueString(string(field))
	}
	cp := make([]byte, len(field))
	copy(cp, field)
	return ValueBytes(cp)
}

// extractBitfield reads the smallest aligned word containing [bitOffset,
// bitOffset+bitWidth), shift-and-masks out the value, and returns the
// narrowest unsigned type >= bit-width (bool when bit-width == 1).
func extractBitfield(field []byte, d Descriptor) (Value, error) {
	need := int((uint(d.BitOffset)+uint(d.BitWidth))+7) / 8
	if need > len(field) || need > 8 {
		return Value{}, cos.NewErrExtraction(d.Path, cos.ExtractOutOfBounds)
	}
	var word uint64
	for i := need - 1; i >= 0; i-- {
		word = word<<8 | uint64(field[i])
	}
	mask := uint64(1)<<uint(d.BitWidth) - 1
	if d.BitWidth == 64 {
		mask = ^uint64(0)
	}
	val := (word >> d.BitOffset) & mask

	if d.BitWidth == 1 {
		return ValueBool(val != 0), nil
	}
	kind := narrowestUnsignedKind(d.BitWidth)
	return ValueUint64(kind, val), nil
}

func narrowestUnsignedKind(bitWidth uint8) Kind {
	switch {
	case bitWidth <= 8:
		return KindUint8
	case bitWidth <= 16:
		return KindUint16
	case bitWidth <= 32:
		return KindUint32
	default:
		return KindUint64
	}
}
