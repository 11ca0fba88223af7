package depth

import (
	"fmt"
	"math"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/sample"
)

// ErrorDiffusion quantises with Floyd-Steinberg error diffusion. The
// context carries the error rows between calls, so rows must arrive in
// order and each call covers the full width.
type ErrorDiffusion struct {
	pl      plan
	load    loadFunc
	store   storeFunc
	rowSize int
}

var _ rowpipe.Stage = (*ErrorDiffusion)(nil)

func newErrorDiffusion(pl plan) *ErrorDiffusion {
	return &ErrorDiffusion{
		pl:      pl,
		load:    loader(pl.From),
		store:   storer(pl.To, pl.maxVal),
		rowSize: rowpipe.AlignUp((pl.Width + 2) * 4),
	}
}

func (e *ErrorDiffusion) Flags() rowpipe.Flags {
	return rowpipe.Flags{
		HasState:  true,
		SameRow:   true,
		InPlace:   e.pl.From.Size() == e.pl.To.Size(),
		EntireRow: true,
	}
}

func (e *ErrorDiffusion) InputGeometry() rowpipe.Geometry  { return e.pl.inputGeometry() }
func (e *ErrorDiffusion) OutputGeometry() rowpipe.Geometry { return e.pl.outputGeometry() }

func (e *ErrorDiffusion) RequiredRowRange(i int) rowpipe.Range {
	return rowpipe.Range{Lo: i, Hi: min(i+1, e.pl.Height)}
}

func (e *ErrorDiffusion) RequiredColRange(_, _ int) rowpipe.Range {
	return rowpipe.Range{Lo: 0, Hi: e.pl.Width}
}

func (e *ErrorDiffusion) SimultaneousLines() int { return 1 }
func (e *ErrorDiffusion) MaxBuffering() int      { return 1 }

// ContextSize holds two error rows with one pad column on each side.
func (e *ErrorDiffusion) ContextSize() int { return 2 * e.rowSize }

func (e *ErrorDiffusion) String() string {
	return fmt.Sprintf("depth.ErrorDiffusion(%v/%d -> %v/%d)", e.pl.From, e.pl.FromDepth, e.pl.To, e.pl.ToDepth)
}

func (e *ErrorDiffusion) TmpSize(_, _ int) int {
	return rowpipe.AlignUp(e.pl.Width * 4)
}

func (e *ErrorDiffusion) InitContext(ctx []byte) {
	clear(ctx[:e.ContextSize()])
}

func (e *ErrorDiffusion) errorRow(ctx []byte, i int) []float32 {
	off := (i & 1) * e.rowSize
	return sample.View[float32](ctx[off : off+e.rowSize])[:e.pl.Width+2]
}

func (e *ErrorDiffusion) Process(ctx []byte, src, dst rowpipe.Buffer, tmp []byte, i, _, _ int) {
	w := e.pl.Width
	buf := sample.View[float32](tmp)[:w]
	e.load(src[0].Row(i), buf, 0)

	cur := e.errorRow(ctx, i)
	next := e.errorRow(ctx, i+1)
	clear(next)

	hi := e.pl.maxVal
	var carry float32
	for x := 0; x < w; x++ {
		v := buf[x]*e.pl.scale + cur[x+1] + carry
		q := float32(math.Floor(float64(v) + 0.5))
		q = min(max(q, 0), hi)
		diff := v - q
		if math.IsNaN(float64(diff)) {
			diff = 0
		}

		carry = diff * (7.0 / 16)
		next[x] += diff * (3.0 / 16)
		next[x+1] += diff * (5.0 / 16)
		next[x+2] += diff * (1.0 / 16)
		buf[x] = q
	}
	e.store(buf, dst[0].Row(i), 0)
}
