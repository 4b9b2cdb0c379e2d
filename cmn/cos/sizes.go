// Package cos provides common low-level types and utilities shared by every
// pipeline package: size constants, word-joining, and the pipeline's error
// taxonomy (see errors.go).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "strconv"

const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// JoinWords joins non-empty path/name components with '.', used to build
// field paths (e.g. "velocity.x") and metric names alike.
func JoinWords(words ...string) string {
	var out string
	for _, w := range words {
		if w == "" {
			continue
		}
		if out == "" {
			out = w
		} else {
			out += "." + w
		}
	}
	return out
}

// Plural returns "s" unless n == 1 - for log/error message formatting.
func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func DivCeil(a, b int64) int64 { return (a + b - 1) / b }

// ToHex renders v as the pipeline's canonical lowercase "0x..." form.
func ToHex(v uint64) string { return "0x" + strconv.FormatUint(v, 16) }

// ToBinary renders v as "0b..." with leading zeros stripped ("0b0" for zero).
func ToBinary(v uint64) string {
	if v == 0 {
		return "0b0"
	}
	return "0b" + strconv.FormatUint(v, 2)
}
