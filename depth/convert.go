package depth

import (
	"fmt"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/sample"
	"github.com/gogpu/rowpipe/internal/wide"
)

type (
	loadFunc  func(src []byte, out []float32, left int)
	storeFunc func(in []float32, dst []byte, left int)

	// scaleFunc maps raw samples to output code values in place: it
	// multiplies by scale, adds the dither offset of column x0+k and, when
	// hi > 0, clamps to [0, hi].
	scaleFunc func(buf []float32, scale float32, d *ditherRow, x0 int, hi float32)
)

// ditherRow holds the offsets of one Bayer row twice over so that eight
// consecutive columns can be loaded from any phase.
type ditherRow [16]float32

func load[T sample.Type](src []T, out []float32) {
	for k := range out {
		out[k] = float32(src[k])
	}
}

func store[T sample.Type](in []float32, dst []T, q sample.Quantizer[T]) {
	for k, v := range in {
		dst[k] = q(v)
	}
}

func loader(p rowpipe.PixelType) loadFunc {
	switch p {
	case rowpipe.PixelByte:
		return func(src []byte, out []float32, left int) {
			load(src[left:], out)
		}
	case rowpipe.PixelWord:
		return func(src []byte, out []float32, left int) {
			load(sample.View[uint16](src)[left:], out)
		}
	case rowpipe.PixelFloat:
		return func(src []byte, out []float32, left int) {
			copy(out, sample.View[float32](src)[left:])
		}
	}
	return nil
}

func storer(p rowpipe.PixelType, maxVal float32) storeFunc {
	switch p {
	case rowpipe.PixelByte:
		q := sample.Round8(maxVal)
		return func(in []float32, dst []byte, left int) {
			store(in, dst[left:], q)
		}
	case rowpipe.PixelWord:
		q := sample.Round16(maxVal)
		return func(in []float32, dst []byte, left int) {
			store(in, sample.View[uint16](dst)[left:], q)
		}
	case rowpipe.PixelFloat:
		return func(in []float32, dst []byte, left int) {
			copy(sample.View[float32](dst)[left:], in)
		}
	}
	return nil
}

func scaleLine(buf []float32, scale float32, d *ditherRow, x0 int, hi float32) {
	for k, v := range buf {
		v = v*scale + d[(x0+k)&7]
		if hi > 0 {
			v = min(max(v, 0), hi)
		}
		buf[k] = v
	}
}

func scaleLineF32x8(buf []float32, scale float32, d *ditherRow, x0 int, hi float32) {
	s := wide.SplatF32(scale)
	k := 0
	for ; k+8 <= len(buf); k += 8 {
		v := wide.LoadF32x8(buf[k:]).Mul(s).Add(wide.LoadF32x8(d[(x0+k)&7:]))
		if hi > 0 {
			v = v.Clamp(0, hi)
		}
		v.Store(buf[k:])
	}
	scaleLine(buf[k:], scale, d, x0+k, hi)
}

func scaleLineF32x4(buf []float32, scale float32, d *ditherRow, x0 int, hi float32) {
	s := wide.SplatF32x4(scale)
	k := 0
	for ; k+4 <= len(buf); k += 4 {
		v := wide.LoadF32x4(buf[k:]).Mul(s).Add(wide.LoadF32x4(d[(x0+k)&7:]))
		if hi > 0 {
			v = v.Clamp(0, hi)
		}
		v.Store(buf[k:])
	}
	scaleLine(buf[k:], scale, d, x0+k, hi)
}

// bayer8 is the 8x8 ordered dither index matrix.
var bayer8 = func() [8][8]int {
	var m [8][8]int
	for n := 1; n < 8; n *= 2 {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v := 4 * m[y][x]
				m[y][x] = v
				m[y][x+n] = v + 2
				m[y+n][x] = v + 3
				m[y+n][x+n] = v + 1
			}
		}
	}
	return m
}()

// Convert is a stateless per-row representation conversion.
type Convert struct {
	pl     plan
	name   string
	load   loadFunc
	scale  scaleFunc
	store  storeFunc
	hi     float32
	dither [8]ditherRow
}

var _ rowpipe.Stage = (*Convert)(nil)

func newConvertStage(pl plan, name string, scale scaleFunc) *Convert {
	c := &Convert{
		pl:    pl,
		name:  name,
		load:  loader(pl.From),
		scale: scale,
		store: storer(pl.To, pl.maxVal),
	}
	if !pl.To.IsFloat() {
		c.hi = pl.maxVal
	}
	if pl.Dither == DitherOrdered {
		for y := range c.dither {
			for x := 0; x < 16; x++ {
				c.dither[y][x] = (float32(bayer8[y][x&7])+0.5)/64 - 0.5
			}
		}
	}
	return c
}

var convertCandidates = []rowpipe.Candidate[plan]{
	{Tier: rowpipe.TierSIMD256, Name: "convert/f32x8", Build: func(pl plan) rowpipe.Stage {
		return newConvertStage(pl, "convert/f32x8", scaleLineF32x8)
	}},
	{Tier: rowpipe.TierSIMD128, Name: "convert/f32x4", Build: func(pl plan) rowpipe.Stage {
		return newConvertStage(pl, "convert/f32x4", scaleLineF32x4)
	}},
}

func newConvert(pl plan) (rowpipe.Stage, error) {
	sel := rowpipe.NewSelector("depth/convert", pl.caps(), convertCandidates...)
	return sel.SelectOr(pl.CPU, pl, func(pl plan) (rowpipe.Stage, error) {
		return newConvertStage(pl, "convert/scalar", scaleLine), nil
	})
}

// Name returns the implementation identity.
func (c *Convert) Name() string { return c.name }

func (c *Convert) Flags() rowpipe.Flags {
	return rowpipe.Flags{SameRow: true, InPlace: c.pl.From.Size() == c.pl.To.Size()}
}

func (c *Convert) InputGeometry() rowpipe.Geometry  { return c.pl.inputGeometry() }
func (c *Convert) OutputGeometry() rowpipe.Geometry { return c.pl.outputGeometry() }

func (c *Convert) RequiredRowRange(i int) rowpipe.Range {
	return rowpipe.Range{Lo: i, Hi: min(i+1, c.pl.Height)}
}

func (c *Convert) RequiredColRange(left, right int) rowpipe.Range {
	return rowpipe.Range{Lo: left, Hi: right}
}

func (c *Convert) SimultaneousLines() int { return 1 }
func (c *Convert) MaxBuffering() int      { return 1 }
func (c *Convert) ContextSize() int       { return 0 }
func (c *Convert) InitContext(_ []byte)   {}
func (c *Convert) String() string         { return fmt.Sprintf("depth.Convert(%s)", c.name) }

func (c *Convert) TmpSize(left, right int) int {
	return rowpipe.AlignUp((right - left) * 4)
}

func (c *Convert) Process(_ []byte, src, dst rowpipe.Buffer, tmp []byte, i, left, right int) {
	buf := sample.View[float32](tmp)[:right-left]
	c.load(src[0].Row(i), buf, left)
	c.scale(buf, c.pl.scale, &c.dither[i&7], left, c.hi)
	c.store(buf, dst[0].Row(i), left)
}
