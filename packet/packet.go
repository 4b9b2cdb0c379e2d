/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package packet

import (
	"fmt"
	"sync/atomic"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/cmn/mono"
	"github.com/signalpath/telepipe/memsys"
)

// ValidationResult is Packet.Validate's structured outcome: a bare valid
// bool plus additive error/warning diagnostics (stale-packet age, size
// mismatches) any consumer can inspect, not just a final boolean.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) addError(s string)   { r.Errors = append(r.Errors, s); r.Valid = false }
func (r *ValidationResult) addWarning(s string) { r.Warnings = append(r.Warnings, s) }

// Packet is a thin, zero-copy view over a pooled buffer. It owns the
// buffer exclusively at construction time; the buffer is only released to
// the pool once the last shared holder calls Release. Movable in spirit
// (Go passes *Packet by pointer already), non-copyable by convention: never
// copy a Packet value, only share its pointer via Retain/Release.
type Packet struct {
	buf  *memsys.Buffer
	size int // header + payload actually in use

	refs atomic.Int32

	structureName string // weak reference: fieldmap owns the real map
}

// New wraps a pooled buffer already containing a fully-encoded wire packet
// of totalSize bytes (header + payload). Initial refcount is 1: the caller
// (typically a source adapter) is the first owner.
func New(buf *memsys.Buffer, totalSize int) *Packet {
	p := &Packet{buf: buf, size: totalSize}
	p.refs.Store(1)
	return p
}

// Build allocates a buffer from mm sized to fit the header plus payload,
// encodes h and payload into it, and returns the resulting Packet.
func Build(mm *memsys.MMSA, h Header, payload []byte) (*Packet, error) {
	need := HeaderSize + len(payload)
	buf, err := mm.Acquire(need)
	if err != nil {
		return nil, err
	}
	n := Encode(buf.Bytes(), h, payload)
	return New(buf, n), nil
}

// Valid reports whether the packet is structurally sound: non-nil buffer,
// correct magic, and payload-size bounds respected.
func (p *Packet) Valid() bool {
	if p == nil || p.buf == nil || p.size < HeaderSize {
		return false
	}
	b := p.buf.Bytes()
	if len(b) < p.size {
		return false
	}
	if decodeMagic(b) != Magic {
		return false
	}
	return int(decodePayloadSize(b))+HeaderSize <= p.size && p.size <= p.buf.Cap()
}

// Validate runs the full diagnostic pass: bounds/magic/payload-size errors
// plus a staleness warning (age over one minute on the mono clock) that
// never affects wire validity but is useful to a consumer. The packet is
// not checked against its bound structure's size.
func (p *Packet) Validate() ValidationResult {
	var r ValidationResult
	r.Valid = true
	if p == nil || p.buf == nil {
		r.addError("nil packet or buffer")
		return r
	}
	b := p.buf.Bytes()
	if p.size < HeaderSize {
		r.addError("packet smaller than header size")
		return r
	}
	if decodeMagic(b) != Magic {
		r.addError("bad magic")
	}
	if int(decodePayloadSize(b))+HeaderSize > p.size {
		r.addError("header payload size exceeds actual payload size")
	}
	if ageMs := p.AgeNs() / 1_000_000; ageMs > 60_000 {
		r.addWarning("packet is older than 1 minute")
	}
	return r
}

func (p *Packet) ID() PacketID       { return decodeID(p.buf.Bytes()) }
func (p *Packet) Sequence() uint32   { return decodeSequence(p.buf.Bytes()) }
func (p *Packet) TimestampNs() uint64 { return decodeTimestamp(p.buf.Bytes()) }
func (p *Packet) PayloadSize() int   { return int(decodePayloadSize(p.buf.Bytes())) }
func (p *Packet) Flags() Flag        { return decodeFlags(p.buf.Bytes()) }
func (p *Packet) HasFlag(f Flag) bool { return p.Flags()&f != 0 }
func (p *Packet) TotalSize() int     { return p.size }

// AgeNs returns the elapsed time since the packet's timestamp, using the
// same monotonic clock sources are expected to stamp packets with.
func (p *Packet) AgeNs() uint64 {
	now := uint64(mono.NanoTime())
	ts := p.TimestampNs()
	if ts >= now {
		return 0
	}
	return now - ts
}

// Data returns the full wire-format bytes (header + payload), read-only by
// convention once the packet has left its source.
func (p *Packet) Data() []byte { return p.buf.Bytes()[:p.size] }

// Payload returns the payload bytes immediately following the header -
// the slice the field extractor indexes into. Zero-copy: callers must not
// retain it past the packet's lifetime.
func (p *Packet) Payload() []byte {
	if p.size <= HeaderSize {
		return nil
	}
	return p.buf.Bytes()[HeaderSize:p.size]
}

// SetSequence/SetTimestamp/SetFlag/ClearFlag mutate header fields. This is
// only safe for the originating source to call before the packet is handed
// to the router; once enqueued a packet is effectively immutable and these
// must not be called concurrently with a reader.
func (p *Packet) SetSequence(seq uint32)  { encodeSequence(p.buf.Bytes(), seq) }
func (p *Packet) SetTimestampNs(ts uint64) { encodeTimestamp(p.buf.Bytes(), ts) }
func (p *Packet) SetFlag(f Flag)          { encodeFlags(p.buf.Bytes(), p.Flags()|f) }
func (p *Packet) ClearFlag(f Flag)        { encodeFlags(p.buf.Bytes(), p.Flags()&^f) }

// SetStructureName associates a (weak, name-only) structure binding used
// only to label the packet; the field map itself lives in package fieldmap,
// keyed by packet id, so there is no cyclical ownership here.
func (p *Packet) SetStructureName(name string) { p.structureName = name }
func (p *Packet) StructureName() string        { return p.structureName }

// Retain increments the shared refcount - called once per additional
// concurrent holder (e.g. once per subscriber a router batch fans out to).
func (p *Packet) Retain() *Packet {
	p.refs.Add(1)
	return p
}

// Release decrements the shared refcount; at zero it returns the backing
// buffer to its pool. Every holder (source, router, each subscriber) must
// call Release exactly once on every exit path, the same discipline a
// shared_ptr-of-buffer lifetime enforces.
func (p *Packet) Release() {
	if p == nil {
		return
	}
	if p.refs.Add(-1) == 0 {
		p.buf.Release()
	}
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet[id=%d seq=%d size=%d]", p.ID(), p.Sequence(), p.size)
}

// CheckBounds is the extractor's bounds invariant, exposed here because
// Packet is the only thing that knows its own payload size:
// descriptor.offset + descriptor.size <= payload-size.
func (p *Packet) CheckBounds(offset, size int) error {
	if offset < 0 || size <= 0 || offset+size > p.PayloadSize() {
		return cos.NewErrExtraction("", cos.ExtractOutOfBounds)
	}
	return nil
}
