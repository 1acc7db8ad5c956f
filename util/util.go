// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package util contains general purpose utilities
package util

import (
	"golang.org/x/exp/constraints"
)

// Min returns the minimum of a and b
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of a and b
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Clamp restricts the value to the range [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return Max(lo, Min(hi, v))
}
