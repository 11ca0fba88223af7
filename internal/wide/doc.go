// Package wide provides fixed-width float lanes for row kernels.
//
// F32x4 and F32x8 are plain arrays manipulated by simple loops, a layout
// the Go compiler can keep in vector registers. The richer implementation
// tiers of the resize and colorspace stages are written against these
// types; the portable tier uses scalar loops.
//
// # Design Philosophy
//
//   - Use simple loops over fixed-size arrays for auto-vectorization
//   - Avoid unsafe and assembly - rely on compiler optimization
//   - Keep functions small and inlineable
//
// # Usage Example
//
//	acc := wide.SplatF32(0)
//	for k, c := range coeffs {
//	    acc = acc.MulAddScalar(wide.LoadF32x8(rows[k][x:]), c)
//	}
//	acc.Store(dst[x:])
package wide
