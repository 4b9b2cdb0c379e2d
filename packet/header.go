// Package packet implements the pipeline's packet container: a thin,
// zero-copy view over a pooled buffer (memsys.Buffer), carrying a fixed
// 28-byte wire header with validation and flag accessors.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package packet

import "encoding/binary"

// HeaderSize is the fixed on-wire header length in bytes.
const HeaderSize = 28

// Magic is the constant marker every packet must carry at offset 0.
const Magic uint32 = 0x4D4F4E31 // "MON1"

// Flag bits, as laid out in the wire header's 2-byte flags field.
type Flag uint16

const (
	FlagPriority Flag = 1 << iota
	FlagTestData
	FlagSimulation
	FlagFragmented
	FlagLast
)

// PacketID identifies a structural packet type.
type PacketID = uint32

// SequenceNumber is a per-id, wrap-aware monotonic counter.
type SequenceNumber = uint32

// Header is a decoded, mutable copy of the wire header - used by sources to
// build a packet before it's written into a pooled buffer. It has no
// relation to the wire layout's byte order once decoded into Go fields.
type Header struct {
	ID         PacketID
	Sequence   SequenceNumber
	TimestampNs uint64
	PayloadSize uint32
	Flags       Flag
}

// Encode writes h, followed by payload, into dst in wire byte order.
// dst must be at least HeaderSize+len(payload) bytes.
func Encode(dst []byte, h Header, payload []byte) int {
	binary.LittleEndian.PutUint32(dst[0:4], Magic)
	binary.LittleEndian.PutUint32(dst[4:8], h.ID)
	binary.LittleEndian.PutUint32(dst[8:12], h.Sequence)
	binary.LittleEndian.PutUint64(dst[12:20], h.TimestampNs)
	binary.LittleEndian.PutUint32(dst[20:24], uint32(len(payload)))
	binary.LittleEndian.PutUint16(dst[24:26], uint16(h.Flags))
	binary.LittleEndian.PutUint16(dst[26:28], 0) // reserved
	n := copy(dst[HeaderSize:], payload)
	return HeaderSize + n
}

// The decode* helpers read header fields directly out of a wire buffer
// without copying - used by Packet's read accessors.
func decodeMagic(b []byte) uint32       { return binary.LittleEndian.Uint32(b[0:4]) }
func decodeID(b []byte) uint32          { return binary.LittleEndian.Uint32(b[4:8]) }
func decodeSequence(b []byte) uint32    { return binary.LittleEndian.Uint32(b[8:12]) }
func decodeTimestamp(b []byte) uint64   { return binary.LittleEndian.Uint64(b[12:20]) }
func decodePayloadSize(b []byte) uint32 { return binary.LittleEndian.Uint32(b[20:24]) }
func decodeFlags(b []byte) Flag         { return Flag(binary.LittleEndian.Uint16(b[24:26])) }

func encodeSequence(b []byte, seq uint32)    { binary.LittleEndian.PutUint32(b[8:12], seq) }
func encodeTimestamp(b []byte, ts uint64)    { binary.LittleEndian.PutUint64(b[12:20], ts) }
func encodeFlags(b []byte, f Flag)           { binary.LittleEndian.PutUint16(b[24:26], uint16(f)) }
