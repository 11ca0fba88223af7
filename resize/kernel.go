package resize

import (
	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/sample"
	"github.com/gogpu/rowpipe/internal/wide"
)

// hLineFunc filters output columns [left, right) of one row.
type hLineFunc func(fc *FilterContext, src, dst []byte, left, right int)

// vLineFunc filters output columns [left, right) of one row from the
// input rows starting at top. tmp holds (right-left) float32 accumulators.
type vLineFunc func(src rowpipe.Plane, top int, coeffs []float32, tmp, dst []byte, left, right int)

func hLine[T sample.Type](fc *FilterContext, src, dst []T, left, right int, q sample.Quantizer[T]) {
	fw := fc.FilterWidth
	for j := left; j < right; j++ {
		c := fc.Data[j*fw : (j+1)*fw]
		in := src[fc.Left[j] : fc.Left[j]+fw]
		var acc float32
		for k, w := range c {
			acc += w * float32(in[k])
		}
		dst[j] = q(acc)
	}
}

func vLine[T sample.Type](src rowpipe.Plane, top int, coeffs, acc []float32, dst []T, left, right int, q sample.Quantizer[T]) {
	n := right - left
	for k, w := range coeffs {
		in := sample.View[T](src.Row(top + k))[left:right]
		if k == 0 {
			for x := range n {
				acc[x] = w * float32(in[x])
			}
			continue
		}
		for x := range n {
			acc[x] += w * float32(in[x])
		}
	}
	for x := range n {
		dst[left+x] = q(acc[x])
	}
}

// hBaseline returns the portable horizontal kernel for a pixel type.
func hBaseline(pixel rowpipe.PixelType, depth int) hLineFunc {
	switch pixel {
	case rowpipe.PixelByte:
		q := sample.Round8(sample.MaxValue(depth))
		return func(fc *FilterContext, src, dst []byte, left, right int) {
			hLine(fc, src, dst, left, right, q)
		}
	case rowpipe.PixelWord:
		q := sample.Round16(sample.MaxValue(depth))
		return func(fc *FilterContext, src, dst []byte, left, right int) {
			hLine(fc, sample.View[uint16](src), sample.View[uint16](dst), left, right, q)
		}
	case rowpipe.PixelFloat:
		return func(fc *FilterContext, src, dst []byte, left, right int) {
			hLine(fc, sample.View[float32](src), sample.View[float32](dst), left, right, sample.Identity)
		}
	}
	return nil
}

// vBaseline returns the portable vertical kernel for a pixel type.
func vBaseline(pixel rowpipe.PixelType, depth int) vLineFunc {
	switch pixel {
	case rowpipe.PixelByte:
		q := sample.Round8(sample.MaxValue(depth))
		return func(src rowpipe.Plane, top int, coeffs []float32, tmp, dst []byte, left, right int) {
			vLine(src, top, coeffs, sample.View[float32](tmp), dst, left, right, q)
		}
	case rowpipe.PixelWord:
		q := sample.Round16(sample.MaxValue(depth))
		return func(src rowpipe.Plane, top int, coeffs []float32, tmp, dst []byte, left, right int) {
			vLine(src, top, coeffs, sample.View[float32](tmp), sample.View[uint16](dst), left, right, q)
		}
	case rowpipe.PixelFloat:
		return func(src rowpipe.Plane, top int, coeffs []float32, _, dst []byte, left, right int) {
			out := sample.View[float32](dst)
			vLine(src, top, coeffs, out[left:right], out, left, right, sample.Identity)
		}
	}
	return nil
}

// hLineF32x8 computes eight output columns per step, gathering one tap of
// each column per lane.
func hLineF32x8(fc *FilterContext, srcRow, dstRow []byte, left, right int) {
	src := sample.View[float32](srcRow)
	dst := sample.View[float32](dstRow)
	fw := fc.FilterWidth

	j := left
	for ; j+8 <= right; j += 8 {
		var acc wide.F32x8
		for k := 0; k < fw; k++ {
			var a, c wide.F32x8
			for l := range 8 {
				a[l] = src[fc.Left[j+l]+k]
				c[l] = fc.Data[(j+l)*fw+k]
			}
			acc = acc.MulAdd(c, a)
		}
		acc.Store(dst[j:])
	}
	hLine(fc, src, dst, j, right, sample.Identity)
}

func vLineF32x8(src rowpipe.Plane, top int, coeffs []float32, _, dstRow []byte, left, right int) {
	dst := sample.View[float32](dstRow)

	x := left
	for ; x+8 <= right; x += 8 {
		var acc wide.F32x8
		for k, w := range coeffs {
			acc = acc.MulAddScalar(wide.LoadF32x8(sample.View[float32](src.Row(top + k))[x:]), w)
		}
		acc.Store(dst[x:])
	}
	if x < right {
		vLine(src, top, coeffs, dst[x:right], dst, x, right, sample.Identity)
	}
}

func vLineF32x4(src rowpipe.Plane, top int, coeffs []float32, _, dstRow []byte, left, right int) {
	dst := sample.View[float32](dstRow)

	x := left
	for ; x+4 <= right; x += 4 {
		var acc wide.F32x4
		for k, w := range coeffs {
			acc = acc.MulAddScalar(wide.LoadF32x4(sample.View[float32](src.Row(top + k))[x:]), w)
		}
		acc.Store(dst[x:])
	}
	if x < right {
		vLine(src, top, coeffs, dst[x:right], dst, x, right, sample.Identity)
	}
}
