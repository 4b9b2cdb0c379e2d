// Package fieldmap implements the field extractor: building an
// offset-indexed field map from a structure declaration, and decoding typed
// values out of a packet's payload by descriptor.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package fieldmap

import "fmt"

// Kind is the field extractor's tagged-union discriminant: a fixed set of
// variants, no runtime reflection downstream.
type Kind int

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
)

func (k Kind) String() string {
	names := [...]string{"bool", "int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64", "float32", "float64", "string", "bytes"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Value is a decoded field value: a closed tagged union over every numeric,
// string, and byte-slice variant the extractor can produce. Construct via
// the Value* constructors, read via the As* accessors or ToFloat64 (used
// internally by package transform).
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	b    []byte
}

func (v Value) Kind() Kind { return v.kind }

func ValueBool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}
func ValueInt64(kind Kind, i int64) Value   { return Value{kind: kind, i: i} }
func ValueUint64(kind Kind, u uint64) Value { return Value{kind: kind, u: u} }
func ValueFloat32(f float32) Value          { return Value{kind: KindFloat32, f: float64(f)} }
func ValueFloat64(f float64) Value          { return Value{kind: KindFloat64, f: f} }
func ValueString(s string) Value            { return Value{kind: KindString, s: s} }
func ValueBytes(b []byte) Value             { return Value{kind: KindBytes, b: b} }

func (v Value) AsBool() bool       { return v.i != 0 }
func (v Value) AsInt64() int64     { return v.i }
func (v Value) AsUint64() uint64   { return v.u }
func (v Value) AsFloat64() float64 { return v.f }
func (v Value) AsString() string   { return v.s }
func (v Value) AsBytes() []byte    { return v.b }

// ToFloat64 converts any variant to double precision, since every
// arithmetic transform operates in double precision internally.
// Non-numeric kinds (string, bytes) return ok=false; strings are not
// parsed here.
func (v Value) ToFloat64() (f float64, ok bool) {
	switch v.kind {
	case KindBool:
		if v.i != 0 {
			return 1, true
		}
		return 0, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return float64(v.i), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return float64(v.u), true
	case KindFloat32, KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%v", v.AsBool())
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return fmt.Sprintf("%d", v.u)
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("% x", v.b)
	default:
		return "<unknown>"
	}
}
