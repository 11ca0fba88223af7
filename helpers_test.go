package rowpipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

// windowStage is a vertical test filter over Byte planes. Output row r
// reads input rows [c-before, c+after] around c = r*inHeight/outHeight
// (clamped) and, when colRadius > 0, the columns x-colRadius and
// x+colRadius as well. Every output byte depends on every sample it reads.
type windowStage struct {
	in, out   Geometry
	step      int
	before    int
	after     int
	colRadius int
	flags     Flags

	calls int
	rows  []int
}

func newWindowStage(width, inHeight, outHeight, before, after, step int) *windowStage {
	return &windowStage{
		in:     Geometry{Width: width, Height: inHeight, Pixel: PixelByte},
		out:    Geometry{Width: width, Height: outHeight, Pixel: PixelByte},
		step:   step,
		before: before,
		after:  after,
	}
}

// newTestStage returns a same-row, in-place capable stage.
func newTestStage(width, height int, pixel PixelType) *windowStage {
	s := newWindowStage(width, height, height, 0, 0, 1)
	s.in.Pixel, s.out.Pixel = pixel, pixel
	s.flags = Flags{SameRow: true, InPlace: true}
	return s
}

func (s *windowStage) rowRange(r int) Range {
	c := r * s.in.Height / s.out.Height
	return ClampRange(Range{Lo: c - s.before, Hi: c + s.after + 1}, s.in.Height)
}

func (s *windowStage) Flags() Flags             { return s.flags }
func (s *windowStage) InputGeometry() Geometry  { return s.in }
func (s *windowStage) OutputGeometry() Geometry { return s.out }
func (s *windowStage) SimultaneousLines() int   { return s.step }
func (s *windowStage) ContextSize() int         { return 0 }
func (s *windowStage) TmpSize(_, _ int) int     { return 0 }
func (s *windowStage) InitContext(_ []byte)     {}

func (s *windowStage) RequiredRowRange(i int) Range {
	last := min(i+s.step, s.out.Height) - 1
	return s.rowRange(i).Union(s.rowRange(last))
}

func (s *windowStage) RequiredColRange(left, right int) Range {
	return ClampRange(Range{Lo: left - s.colRadius, Hi: right + s.colRadius}, s.in.Width)
}

func (s *windowStage) MaxBuffering() int {
	n := 0
	for i := 0; i < s.out.Height; i += s.step {
		n = max(n, s.RequiredRowRange(i).Len())
	}
	return n
}

func (s *windowStage) Process(_ []byte, src, dst Buffer, _ []byte, i, left, right int) {
	s.calls++
	for r := i; r < min(i+s.step, s.out.Height); r++ {
		s.rows = append(s.rows, r)
		rng := s.rowRange(r)
		out := dst[0].Row(r)
		for x := left; x < right; x++ {
			acc := byte(r)
			for y := rng.Lo; y < rng.Hi; y++ {
				in := src[0].Row(y)
				k := byte(y - rng.Lo + 1)
				acc += in[x] * k
				if s.colRadius > 0 {
					acc += in[max(x-s.colRadius, 0)]*3 + in[min(x+s.colRadius, s.in.Width-1)]*5
				}
			}
			out[x] = acc
		}
	}
}

// counterStage is a stateful same-row stage: each output row adds the
// number of rows processed so far in the run, kept in the context.
type counterStage struct {
	g     Geometry
	calls int
}

func (s *counterStage) Flags() Flags                    { return Flags{HasState: true, SameRow: true} }
func (s *counterStage) InputGeometry() Geometry         { return s.g }
func (s *counterStage) OutputGeometry() Geometry        { return s.g }
func (s *counterStage) RequiredRowRange(i int) Range    { return Range{Lo: i, Hi: i + 1} }
func (s *counterStage) RequiredColRange(l, r int) Range { return Range{Lo: l, Hi: r} }
func (s *counterStage) SimultaneousLines() int          { return 1 }
func (s *counterStage) MaxBuffering() int               { return 1 }
func (s *counterStage) ContextSize() int                { return 8 }
func (s *counterStage) TmpSize(_, _ int) int            { return 0 }
func (s *counterStage) InitContext(ctx []byte)          { clear(ctx[:8]) }
func (s *counterStage) counter(ctx []byte) uint64       { return binary.LittleEndian.Uint64(ctx) }
func (s *counterStage) setCounter(ctx []byte, n uint64) { binary.LittleEndian.PutUint64(ctx, n) }
func (s *counterStage) String() string                  { return fmt.Sprintf("counter(%v)", s.g) }

func (s *counterStage) Process(ctx []byte, src, dst Buffer, _ []byte, i, left, right int) {
	s.calls++
	n := s.counter(ctx)
	in, out := src[0].Row(i), dst[0].Row(i)
	for x := left; x < right; x++ {
		out[x] = in[x] + byte(n)*3
	}
	s.setCounter(ctx, n+1)
}

// rotateStage is a colour-coupled same-row stage: output plane p is input
// plane (p+1)%3 xor p.
type rotateStage struct {
	g Geometry
}

func (s *rotateStage) Flags() Flags                    { return Flags{SameRow: true, Color: true} }
func (s *rotateStage) InputGeometry() Geometry         { return s.g }
func (s *rotateStage) OutputGeometry() Geometry        { return s.g }
func (s *rotateStage) RequiredRowRange(i int) Range    { return Range{Lo: i, Hi: i + 1} }
func (s *rotateStage) RequiredColRange(l, r int) Range { return Range{Lo: l, Hi: r} }
func (s *rotateStage) SimultaneousLines() int          { return 1 }
func (s *rotateStage) MaxBuffering() int               { return 1 }
func (s *rotateStage) ContextSize() int                { return 0 }
func (s *rotateStage) TmpSize(_, _ int) int            { return 0 }
func (s *rotateStage) InitContext(_ []byte)            {}

func (s *rotateStage) Process(_ []byte, src, dst Buffer, _ []byte, i, left, right int) {
	for p := 0; p < 3; p++ {
		in, out := src[(p+1)%3].Row(i), dst[p].Row(i)
		for x := left; x < right; x++ {
			out[x] = in[x] ^ byte(p)
		}
	}
}

func mustAlloc(t testing.TB, g Geometry, planes int) Buffer {
	t.Helper()
	buf, err := AllocBuffer(g, planes)
	if err != nil {
		t.Fatalf("AllocBuffer(%v, %d) = %v", g, planes, err)
	}
	return buf
}

func fillPattern(buf Buffer, g Geometry) {
	for p := range buf {
		for y := 0; y < g.Height; y++ {
			row := buf[p].Row(y)
			for x := 0; x < g.Pixel.RowBytes(g.Width); x++ {
				row[x] = byte(x*31 + y*17 + p*101 + (x*y)%7)
			}
		}
	}
}

func compareBuffers(t *testing.T, want, got Buffer, g Geometry) {
	t.Helper()
	n := g.Pixel.RowBytes(g.Width)
	for p := range want {
		for y := 0; y < g.Height; y++ {
			w, h := want[p].Row(y)[:n], got[p].Row(y)[:n]
			for x := range w {
				if w[x] != h[x] {
					t.Fatalf("plane %d row %d byte %d = %d, want %d", p, y, x, h[x], w[x])
				}
			}
		}
	}
}

// recoverError runs fn and returns the error it panics with, or nil.
func recoverError(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			e, ok := v.(error)
			if !ok {
				e = fmt.Errorf("%v", v)
			}
			err = e
		}
	}()
	fn()
	return nil
}

var errNoPanic = errors.New("no panic")

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	err := recoverError(fn)
	if err == nil {
		err = errNoPanic
	}
	if !errors.Is(err, target) {
		t.Fatalf("panic = %v, want %v", err, target)
	}
}
