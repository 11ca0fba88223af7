package rowpipe

import (
	"errors"
	"slices"
	"testing"
)

// drive runs a fused stage over every output row of every plane and checks
// cache occupancy after each call.
func drive(t *testing.T, p *Pair, src, dst Buffer, cols Range) {
	t.Helper()
	a := NewArena(p, cols.Lo, cols.Hi)
	run := func(src, dst Buffer) {
		p.InitContext(a.Context())
		for i := 0; i < p.OutputGeometry().Height; i += p.SimultaneousLines() {
			p.Process(a.Context(), src, dst, a.Tmp(), i, cols.Lo, cols.Hi)
			if p.Buffered() > p.CacheSpan() {
				t.Fatalf("row %d: buffered %d > cache span %d", i, p.Buffered(), p.CacheSpan())
			}
		}
	}
	if p.Flags().Color {
		run(src, dst)
		return
	}
	for k := range dst {
		run(src.Sub(k), dst.Sub(k))
	}
}

func TestPairMatchesReference(t *testing.T) {
	const w = 13
	g := func(h int) Geometry { return Geometry{Width: w, Height: h, Pixel: PixelByte} }

	nested := func(a, b Stage) Stage {
		p, err := NewPair(a, b)
		if err != nil {
			t.Fatalf("NewPair() = %v", err)
		}
		return p
	}
	withCols := func(s *windowStage, r int) *windowStage {
		s.colRadius = r
		return s
	}

	tests := []struct {
		name   string
		first  Stage
		second Stage
	}{
		{"same rows", newTestStage(w, 9, PixelByte), newTestStage(w, 9, PixelByte)},
		{"two windows", newWindowStage(w, 20, 20, 1, 1, 1), newWindowStage(w, 20, 20, 2, 2, 1)},
		{"downscale", newWindowStage(w, 30, 20, 1, 1, 1), newWindowStage(w, 20, 9, 2, 2, 2)},
		{"upscale", newWindowStage(w, 10, 25, 1, 2, 1), newWindowStage(w, 25, 25, 0, 3, 1)},
		{"first step 3", newWindowStage(w, 17, 17, 1, 1, 3), newWindowStage(w, 17, 17, 2, 1, 2)},
		{"second step 4", newWindowStage(w, 11, 11, 0, 1, 1), newWindowStage(w, 11, 7, 1, 1, 4)},
		{"columns", withCols(newWindowStage(w, 12, 12, 1, 0, 1), 2), withCols(newWindowStage(w, 12, 12, 0, 1, 1), 1)},
		{"stateful first", &counterStage{g: g(15)}, newWindowStage(w, 15, 5, 1, 1, 1)},
		{"stateful second", newWindowStage(w, 15, 15, 2, 0, 1), &counterStage{g: g(15)}},
		{"colour second", newWindowStage(w, 8, 8, 1, 1, 1), &rotateStage{g: g(8)}},
		{"colour first", &rotateStage{g: g(8)}, newWindowStage(w, 8, 4, 1, 1, 1)},
		{"pair before colour", nested(newWindowStage(w, 10, 10, 1, 1, 1), newWindowStage(w, 10, 10, 0, 2, 1)), &rotateStage{g: g(10)}},
		{"colour before pair", &rotateStage{g: g(10)}, nested(newWindowStage(w, 10, 7, 1, 1, 1), newWindowStage(w, 7, 7, 1, 1, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPair(tt.first, tt.second)
			if err != nil {
				t.Fatalf("NewPair() = %v", err)
			}
			in, out := p.InputGeometry(), p.OutputGeometry()
			src := mustAlloc(t, in, 3)
			fillPattern(src, in)

			want := mustAlloc(t, out, 3)
			r := NewRunner()
			defer r.Close()
			if err := r.RunReference(src, want, tt.first, tt.second); err != nil {
				t.Fatalf("RunReference() = %v", err)
			}

			got := mustAlloc(t, out, 3)
			drive(t, p, src, got, Range{Lo: 0, Hi: out.Width})
			compareBuffers(t, want, got, out)

			if p.Flags().HasState {
				return
			}
			// Partial column ranges only expose [left, right) but must
			// still match.
			part := mustAlloc(t, out, 3)
			drive(t, p, src, part, Range{Lo: 4, Hi: 9})
			for k := range want {
				for y := 0; y < out.Height; y++ {
					if !slices.Equal(want[k].Row(y)[4:9], part[k].Row(y)[4:9]) {
						t.Fatalf("plane %d row %d: partial columns differ", k, y)
					}
				}
			}
		})
	}
}

func TestPairMinimalFirstStageCalls(t *testing.T) {
	first := newWindowStage(4, 5, 5, 0, 1, 1)
	second := newWindowStage(4, 5, 5, 0, 1, 1)
	if first.MaxBuffering() != 2 || second.MaxBuffering() != 2 {
		t.Fatalf("MaxBuffering = %d/%d, want 2/2", first.MaxBuffering(), second.MaxBuffering())
	}
	p, err := NewPair(first, second)
	if err != nil {
		t.Fatalf("NewPair() = %v", err)
	}
	if p.CacheSpan() != 2 {
		t.Errorf("CacheSpan() = %d, want 2", p.CacheSpan())
	}

	g := p.InputGeometry()
	src := mustAlloc(t, g, 1)
	dst := mustAlloc(t, p.OutputGeometry(), 1)
	drive(t, p, src, dst, Range{Lo: 0, Hi: 4})

	if first.calls != 5 {
		t.Errorf("first stage calls = %d, want 5", first.calls)
	}
	if !slices.Equal(first.rows, []int{0, 1, 2, 3, 4}) {
		t.Errorf("first stage rows = %v, want [0 1 2 3 4]", first.rows)
	}
	if second.calls != 5 {
		t.Errorf("second stage calls = %d, want 5", second.calls)
	}
}

func TestPairSkipsUnneededRows(t *testing.T) {
	// The second stage only reads even intermediate rows.
	t.Run("stateless", func(t *testing.T) {
		first := newTestStage(4, 10, PixelByte)
		second := newWindowStage(4, 10, 5, 0, 0, 1)
		p, err := NewPair(first, second)
		if err != nil {
			t.Fatalf("NewPair() = %v", err)
		}
		src := mustAlloc(t, p.InputGeometry(), 1)
		dst := mustAlloc(t, p.OutputGeometry(), 1)
		drive(t, p, src, dst, Range{Lo: 0, Hi: 4})
		if !slices.Equal(first.rows, []int{0, 2, 4, 6, 8}) {
			t.Errorf("first stage rows = %v, want [0 2 4 6 8]", first.rows)
		}
	})

	t.Run("stateful", func(t *testing.T) {
		first := &counterStage{g: Geometry{Width: 4, Height: 10, Pixel: PixelByte}}
		second := newWindowStage(4, 10, 5, 0, 0, 1)
		p, err := NewPair(first, second)
		if err != nil {
			t.Fatalf("NewPair() = %v", err)
		}
		src := mustAlloc(t, p.InputGeometry(), 1)
		dst := mustAlloc(t, p.OutputGeometry(), 1)
		drive(t, p, src, dst, Range{Lo: 0, Hi: 4})
		if first.calls != 9 {
			t.Errorf("first stage calls = %d, want 9", first.calls)
		}
	})
}

func TestPairRowOrder(t *testing.T) {
	p, err := NewPair(newWindowStage(4, 8, 8, 1, 1, 1), newWindowStage(4, 8, 8, 1, 1, 1))
	if err != nil {
		t.Fatalf("NewPair() = %v", err)
	}
	g := p.InputGeometry()
	src, dst := mustAlloc(t, g, 1), mustAlloc(t, g, 1)
	a := NewArena(p, 0, 4)

	p.InitContext(a.Context())
	p.Process(a.Context(), src, dst, a.Tmp(), 3, 0, 4)
	p.Process(a.Context(), src, dst, a.Tmp(), 3, 0, 4) // repeating a row is allowed
	expectPanic(t, ErrRowOrder, func() {
		p.Process(a.Context(), src, dst, a.Tmp(), 1, 0, 4)
	})

	// InitContext starts a new run.
	p.InitContext(a.Context())
	if err := recoverError(func() { p.Process(a.Context(), src, dst, a.Tmp(), 0, 0, 4) }); err != nil {
		t.Errorf("Process after InitContext panicked: %v", err)
	}
}

func TestPairColumnRangeChange(t *testing.T) {
	g := Geometry{Width: 8, Height: 6, Pixel: PixelByte}

	t.Run("stateless first recomputes", func(t *testing.T) {
		first := newWindowStage(8, 6, 6, 1, 1, 1)
		second := newWindowStage(8, 6, 6, 1, 1, 1)
		p, err := NewPair(first, second)
		if err != nil {
			t.Fatalf("NewPair() = %v", err)
		}
		src := mustAlloc(t, g, 1)
		fillPattern(src, g)
		want, got := mustAlloc(t, g, 1), mustAlloc(t, g, 1)
		drive(t, p, src, want, Range{Lo: 0, Hi: 8})

		a := NewArena(p, 0, 8)
		p.InitContext(a.Context())
		for i := 0; i < 6; i++ {
			lo := (i % 2) * 4
			p.Process(a.Context(), src, got, a.Tmp(), i, lo, lo+4)
		}
		for i := 0; i < 6; i++ {
			lo := (i % 2) * 4
			if !slices.Equal(want[0].Row(i)[lo:lo+4], got[0].Row(i)[lo:lo+4]) {
				t.Errorf("row %d differs after column change", i)
			}
		}
	})

	t.Run("stateful first panics", func(t *testing.T) {
		p, err := NewPair(&counterStage{g: g}, newWindowStage(8, 6, 6, 1, 1, 1))
		if err != nil {
			t.Fatalf("NewPair() = %v", err)
		}
		src, dst := mustAlloc(t, g, 1), mustAlloc(t, g, 1)
		a := NewArena(p, 0, 8)
		p.InitContext(a.Context())
		p.Process(a.Context(), src, dst, a.Tmp(), 0, 0, 4)
		expectPanic(t, ErrColumnRange, func() {
			p.Process(a.Context(), src, dst, a.Tmp(), 1, 4, 8)
		})
	})
}

func TestNewPairErrors(t *testing.T) {
	a := newTestStage(4, 4, PixelByte)
	if _, err := NewPair(nil, a); !errors.Is(err, ErrNilStage) {
		t.Errorf("NewPair(nil, a) = %v, want ErrNilStage", err)
	}
	if _, err := NewPair(a, nil); !errors.Is(err, ErrNilStage) {
		t.Errorf("NewPair(a, nil) = %v, want ErrNilStage", err)
	}

	mismatches := []Stage{
		newTestStage(5, 4, PixelByte),
		newTestStage(4, 5, PixelByte),
		newTestStage(4, 4, PixelWord),
	}
	for _, b := range mismatches {
		if _, err := NewPair(a, b); !errors.Is(err, ErrGeometryMismatch) {
			t.Errorf("NewPair(%v, %v) = %v, want ErrGeometryMismatch", a.out, b.InputGeometry(), err)
		}
	}

	if _, err := Fuse(); !errors.Is(err, ErrNilStage) {
		t.Errorf("Fuse() = %v, want ErrNilStage", err)
	}
	if s, err := Fuse(a); err != nil || s != Stage(a) {
		t.Errorf("Fuse(a) = %v, %v, want a, nil", s, err)
	}
	if _, err := Fuse(a, a, newTestStage(3, 3, PixelByte)); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Fuse(mismatch) = %v, want ErrGeometryMismatch", err)
	}
}

func TestPairDerivedFlags(t *testing.T) {
	g := Geometry{Width: 4, Height: 4, Pixel: PixelByte}
	same := func() Stage { return newTestStage(4, 4, PixelByte) }
	window := func() Stage { return newWindowStage(4, 4, 4, 1, 1, 1) }
	entire := func() Stage {
		s := newTestStage(4, 4, PixelByte)
		s.flags.EntireRow = true
		return s
	}

	tests := []struct {
		name    string
		first   Stage
		second  Stage
		want    Flags
		ctxSize int
	}{
		{"in place", same(), same(), Flags{SameRow: true, InPlace: true}, 0},
		{"window breaks in place", same(), window(), Flags{}, 0},
		{"state from first", &counterStage{g: g}, same(), Flags{HasState: true, SameRow: true}, 8},
		{"state from second", same(), &counterStage{g: g}, Flags{HasState: true, SameRow: true}, 8},
		{"entire row from second", same(), entire(), Flags{SameRow: true, InPlace: true, EntireRow: true}, 0},
		{"entire row from first", entire(), same(), Flags{SameRow: true, InPlace: true, EntireRow: true}, 0},
		{"colour coupling", &counterStage{g: g}, &rotateStage{g: g}, Flags{HasState: true, SameRow: true, Color: true}, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPair(tt.first, tt.second)
			if err != nil {
				t.Fatalf("NewPair() = %v", err)
			}
			if got := p.Flags(); got != tt.want {
				t.Errorf("Flags() = %v, want %v", got, tt.want)
			}
			if got := p.ContextSize(); got != tt.ctxSize {
				t.Errorf("ContextSize() = %d, want %d", got, tt.ctxSize)
			}
		})
	}
}

func TestPairCouplesNestedPairs(t *testing.T) {
	g := Geometry{Width: 6, Height: 9, Pixel: PixelByte}
	inner, err := NewPair(&counterStage{g: g}, newWindowStage(6, 9, 9, 1, 1, 1))
	if err != nil {
		t.Fatalf("NewPair(inner) = %v", err)
	}
	outer, err := NewPair(inner, &rotateStage{g: g})
	if err != nil {
		t.Fatalf("NewPair(outer) = %v", err)
	}
	if inner.Flags().Color {
		t.Error("inner pair became colour coupled")
	}
	first, ok := outer.First().(*Pair)
	if !ok || first == inner {
		t.Fatalf("outer.First() = %v, want a rebuilt pair", outer.First())
	}
	if !first.Flags().Color || first.CacheSize() != 3*inner.CacheSize() {
		t.Errorf("rebuilt pair colour %t cache %d, want colour with %d bytes",
			first.Flags().Color, first.CacheSize(), 3*inner.CacheSize())
	}
	if got, want := outer.ContextSize(), 3*inner.ContextSize(); got != want {
		t.Errorf("ContextSize() = %d, want %d", got, want)
	}

	src := mustAlloc(t, g, 3)
	fillPattern(src, g)
	r := NewRunner()
	defer r.Close()
	want := mustAlloc(t, g, 3)
	if err := r.RunReference(src, want, inner, &rotateStage{g: g}); err != nil {
		t.Fatalf("RunReference() = %v", err)
	}
	got := mustAlloc(t, g, 3)
	if err := r.Run(outer, src, got); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	compareBuffers(t, want, got, g)
}

func TestPairColourContextLayout(t *testing.T) {
	g := Geometry{Width: 6, Height: 5, Pixel: PixelByte}
	p, err := NewPair(&counterStage{g: g}, &rotateStage{g: g})
	if err != nil {
		t.Fatalf("NewPair() = %v", err)
	}
	src := mustAlloc(t, g, 3)
	fillPattern(src, g)
	dst := mustAlloc(t, g, 3)

	r := NewRunner()
	defer r.Close()
	if err := r.Run(p, src, dst); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	want := mustAlloc(t, g, 3)
	if err := r.RunReference(src, want, &counterStage{g: g}, &rotateStage{g: g}); err != nil {
		t.Fatalf("RunReference() = %v", err)
	}
	compareBuffers(t, want, dst, g)
}

func TestPairCacheSizing(t *testing.T) {
	tests := []struct {
		name      string
		first     Stage
		second    Stage
		span      int
		lines     int
		planes    int
		fullFrame bool
	}{
		{"five tap", newTestStage(100, 100, PixelByte), newWindowStage(100, 100, 100, 2, 2, 1), 5, 8, 1, false},
		{"power of two", newTestStage(10, 50, PixelByte), newWindowStage(10, 50, 50, 1, 2, 1), 4, 4, 1, false},
		{"first step rounds up", newWindowStage(10, 40, 40, 0, 0, 4), newWindowStage(10, 40, 40, 1, 1, 1), 6, 8, 1, false},
		{"short frame", newTestStage(10, 6, PixelByte), newWindowStage(10, 6, 6, 3, 3, 1), 6, 6, 1, true},
		{"colour", newTestStage(10, 20, PixelByte), &rotateStage{g: Geometry{Width: 10, Height: 20, Pixel: PixelByte}}, 1, 1, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPair(tt.first, tt.second)
			if err != nil {
				t.Fatalf("NewPair() = %v", err)
			}
			if p.CacheSpan() != tt.span {
				t.Errorf("CacheSpan() = %d, want %d", p.CacheSpan(), tt.span)
			}
			if p.CacheLines() != tt.lines {
				t.Errorf("CacheLines() = %d, want %d", p.CacheLines(), tt.lines)
			}
			stride := AlignUp(p.first.OutputGeometry().Width)
			if want := stride * tt.lines * tt.planes; p.CacheSize() != want {
				t.Errorf("CacheSize() = %d, want %d", p.CacheSize(), want)
			}
			if got := p.cache[0].Mask == BufferMax; got != tt.fullFrame {
				t.Errorf("full frame cache = %t, want %t", got, tt.fullFrame)
			}
		})
	}
}

func TestPairMaxBuffering(t *testing.T) {
	first := newWindowStage(8, 40, 20, 2, 2, 1)
	second := newWindowStage(8, 20, 10, 1, 1, 2)
	p, err := NewPair(first, second)
	if err != nil {
		t.Fatalf("NewPair() = %v", err)
	}
	if p.SimultaneousLines() != 2 {
		t.Errorf("SimultaneousLines() = %d, want 2", p.SimultaneousLines())
	}
	for i := 0; i < p.OutputGeometry().Height; i += 2 {
		if n := p.RequiredRowRange(i).Len(); n > p.MaxBuffering() {
			t.Errorf("RequiredRowRange(%d).Len() = %d > MaxBuffering() %d", i, n, p.MaxBuffering())
		}
	}
}

// fullRequirement returns the input rows first needs to produce every
// intermediate row second reads over a whole frame.
func fullRequirement(first, second Stage) Range {
	mid := ClampRange(FullRowRange(second), first.OutputGeometry().Height)
	step := first.SimultaneousLines()
	r := first.RequiredRowRange(alignDown(mid.Lo, step))
	for i := alignDown(mid.Lo, step); i < mid.Hi; i += step {
		r = r.Union(first.RequiredRowRange(i))
	}
	return r
}

func TestFullRowRangeThroughChainedFusion(t *testing.T) {
	a := newWindowStage(6, 30, 24, 1, 2, 1)
	b := newWindowStage(6, 24, 24, 0, 0, 3)
	c := newWindowStage(6, 24, 10, 2, 1, 2)

	ab, err := NewPair(a, b)
	if err != nil {
		t.Fatalf("NewPair(a, b) = %v", err)
	}
	abc, err := NewPair(ab, c)
	if err != nil {
		t.Fatalf("NewPair(ab, c) = %v", err)
	}

	if got, want := FullRowRange(ab), fullRequirement(a, b); got != want {
		t.Errorf("FullRowRange(ab) = %v, want %v", got, want)
	}
	if got, want := FullRowRange(abc), fullRequirement(ab, c); got != want {
		t.Errorf("FullRowRange(abc) = %v, want %v", got, want)
	}
	if got, want := FullRowRange(abc), (Range{Lo: 0, Hi: 30}); got != want {
		t.Errorf("FullRowRange(abc) = %v, want %v", got, want)
	}

	fused, err := Fuse(a, b, c)
	if err != nil {
		t.Fatalf("Fuse() = %v", err)
	}
	src := mustAlloc(t, fused.InputGeometry(), 2)
	fillPattern(src, fused.InputGeometry())
	got := mustAlloc(t, fused.OutputGeometry(), 2)
	want := mustAlloc(t, fused.OutputGeometry(), 2)

	r := NewRunner()
	defer r.Close()
	if err := r.Run(fused, src, got); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if err := r.RunReference(src, want, a, b, c); err != nil {
		t.Fatalf("RunReference() = %v", err)
	}
	compareBuffers(t, want, got, fused.OutputGeometry())
}
