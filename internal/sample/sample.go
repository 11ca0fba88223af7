// Package sample converts between raw row bytes and typed samples.
package sample

import (
	"math"
	"unsafe"
)

// Type is the set of sample representations a row can hold.
type Type interface {
	~uint8 | ~uint16 | ~float32
}

// View reinterprets a row as samples of type T. Rows come from aligned
// allocations, so the reinterpretation is always suitably aligned.
func View[T Type](row []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(row) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&row[0])), len(row)/size)
}

// MaxValue returns the largest integer code of the given bit depth.
func MaxValue(depth int) float32 {
	return float32(uint32(1)<<uint(depth) - 1)
}

// Quantizer maps a float to a sample of type T.
type Quantizer[T Type] func(v float32) T

// Identity is the quantizer for float samples.
func Identity(v float32) float32 { return v }

// Round8 returns a quantizer rounding to the nearest 8-bit code in [0, maxVal].
func Round8(maxVal float32) Quantizer[uint8] {
	return func(v float32) uint8 {
		return uint8(clamp(v+0.5, 0, maxVal))
	}
}

// Round16 returns a quantizer rounding to the nearest 16-bit code in [0, maxVal].
func Round16(maxVal float32) Quantizer[uint16] {
	return func(v float32) uint16 {
		return uint16(clamp(v+0.5, 0, maxVal))
	}
}

func clamp(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	case math.IsNaN(float64(v)):
		return lo
	default:
		return v
	}
}
