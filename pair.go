package rowpipe

import "fmt"

// Pair is the fusion of two stages. It produces the same rows as running
// the first stage over a whole frame and then the second stage over the
// result, but only keeps a bounded ring of intermediate rows.
//
// A Pair owns its intermediate cache and row cursor, so one instance
// serves one run at a time. Construct one Pair per concurrent stream.
// Whatever its children declare, a Pair must be driven with
// non-decreasing row indices between InitContext calls.
type Pair struct {
	first  Stage
	second Stage

	firstFlags  Flags
	secondFlags Flags

	in  Geometry
	mid Geometry
	out Geometry

	firstStep  int
	secondStep int

	hasState  bool
	inPlace   bool
	sameRow   bool
	entireRow bool
	color     bool

	// Calls per row group: 3 when the pair is colour coupled but the child
	// processes one plane at a time, 1 otherwise.
	firstCalls  int
	secondCalls int

	firstCtxSize  int
	secondCtxSize int

	planes       int
	cacheSpan    int
	cacheLines   int
	maxBuffering int
	cache        Buffer

	// Run state, reset by InitContext.
	started  bool
	cursor   int
	lastRow  int
	cols     Range
	buffered int
}

var _ Stage = (*Pair)(nil)

// NewPair fuses first and second into a single stage. The first stage's
// output geometry must equal the second stage's input geometry.
func NewPair(first, second Stage) (*Pair, error) {
	return newPair(first, second, false)
}

// coupled returns s ready to be driven with all three planes at once. A
// per-plane Pair keeps its cursor and cache in the instance, so it is
// rebuilt to hold one cache per plane.
func coupled(s Stage) (Stage, error) {
	if p, ok := s.(*Pair); ok && !p.color {
		return newPair(p.first, p.second, true)
	}
	return s, nil
}

func newPair(first, second Stage, color bool) (*Pair, error) {
	if first == nil || second == nil {
		return nil, ErrNilStage
	}
	if color = color || first.Flags().Color || second.Flags().Color; color {
		var err error
		if first, err = coupled(first); err != nil {
			return nil, err
		}
		if second, err = coupled(second); err != nil {
			return nil, err
		}
	}

	mid := first.OutputGeometry()
	if mid != second.InputGeometry() {
		return nil, fmt.Errorf("%w: first produces %v, second reads %v",
			ErrGeometryMismatch, mid, second.InputGeometry())
	}
	if err := mid.Validate(); err != nil {
		return nil, err
	}

	p := &Pair{
		first:         first,
		second:        second,
		firstFlags:    first.Flags(),
		secondFlags:   second.Flags(),
		in:            first.InputGeometry(),
		mid:           mid,
		out:           second.OutputGeometry(),
		firstStep:     first.SimultaneousLines(),
		secondStep:    second.SimultaneousLines(),
		firstCtxSize:  first.ContextSize(),
		secondCtxSize: second.ContextSize(),
		firstCalls:    1,
		secondCalls:   1,
		planes:        1,
	}
	if p.firstStep <= 0 || p.secondStep <= 0 {
		return nil, fmt.Errorf("%w: simultaneous lines %d/%d", ErrInvalidGeometry, p.firstStep, p.secondStep)
	}

	ff, sf := p.firstFlags, p.secondFlags
	p.color = color
	if p.color {
		p.planes = 3
		if !ff.Color {
			p.firstCalls = 3
		}
		if !sf.Color {
			p.secondCalls = 3
		}
	}
	p.hasState = ff.HasState || sf.HasState
	p.sameRow = ff.SameRow && sf.SameRow
	p.inPlace = ff.InPlace && sf.InPlace && p.sameRow && p.in.Width == p.out.Width
	p.entireRow = ff.EntireRow || sf.EntireRow

	p.cacheSpan = p.computeSpan()
	p.cacheLines = ceilPow2(p.cacheSpan)
	full := p.cacheLines >= mid.Height
	if full {
		p.cacheLines = mid.Height
	}
	p.cache = allocRing(mid, p.planes, p.cacheLines, full)

	for i := 0; i < p.out.Height; i += p.secondStep {
		p.maxBuffering = max(p.maxBuffering, p.RequiredRowRange(i).Len())
	}

	Logger().Debug("rowpipe: fused stages",
		"in", p.in.String(),
		"mid", mid.String(),
		"out", p.out.String(),
		"first_step", p.firstStep,
		"second_step", p.secondStep,
		"cache_span", p.cacheSpan,
		"cache_lines", p.cacheLines,
		"cache_stride", p.cache[0].Stride,
		"planes", p.planes,
		"in_place", p.inPlace,
	)
	return p, nil
}

// Fuse folds stages left to right into nested pairs. A single stage is
// returned unchanged.
func Fuse(stages ...Stage) (Stage, error) {
	if len(stages) == 0 {
		return nil, ErrNilStage
	}
	s := stages[0]
	if s == nil {
		return nil, ErrNilStage
	}
	for i, next := range stages[1:] {
		p, err := NewPair(s, next)
		if err != nil {
			return nil, fmt.Errorf("fusing stage %d: %w", i+1, err)
		}
		s = p
	}
	return s, nil
}

// computeSpan returns the most intermediate rows that must be resident at
// once: for every output group of the second stage, the rows from the
// start of its window to the end of the last first-stage group needed to
// cover the window.
func (p *Pair) computeSpan() int {
	span := min(p.firstStep, p.mid.Height)
	for i := 0; i < p.out.Height; i += p.secondStep {
		r := ClampRange(p.second.RequiredRowRange(i), p.mid.Height)
		hi := min(alignUpTo(r.Hi, p.firstStep), p.mid.Height)
		span = max(span, hi-r.Lo)
	}
	return span
}

// First returns the first child.
func (p *Pair) First() Stage { return p.first }

// Second returns the second child.
func (p *Pair) Second() Stage { return p.second }

// CacheSpan returns the intermediate rows that can be live at once.
func (p *Pair) CacheSpan() int { return p.cacheSpan }

// CacheLines returns the row capacity of the intermediate cache.
func (p *Pair) CacheLines() int { return p.cacheLines }

// CacheSize returns the bytes held by the intermediate cache.
func (p *Pair) CacheSize() int {
	return p.cache[0].Stride * p.cacheLines * p.planes
}

// Buffered returns the intermediate rows the last Process call kept
// resident for the second stage. It never exceeds CacheSpan.
func (p *Pair) Buffered() int { return p.buffered }

func (p *Pair) Flags() Flags {
	return Flags{
		HasState:  p.hasState,
		SameRow:   p.sameRow,
		InPlace:   p.inPlace,
		EntireRow: p.entireRow,
		Color:     p.color,
	}
}

func (p *Pair) InputGeometry() Geometry  { return p.in }
func (p *Pair) OutputGeometry() Geometry { return p.out }

func (p *Pair) RequiredRowRange(i int) Range {
	r := ClampRange(p.second.RequiredRowRange(i), p.mid.Height)
	top := p.first.RequiredRowRange(alignDown(r.Lo, p.firstStep))
	bot := p.first.RequiredRowRange(alignDown(r.Hi-1, p.firstStep))
	return Range{Lo: top.Lo, Hi: bot.Hi}
}

// firstCols returns the columns the first stage must produce so that the
// second stage can produce [left, right).
func (p *Pair) firstCols(left, right int) Range {
	if p.firstFlags.EntireRow || p.secondFlags.EntireRow {
		return Range{Lo: 0, Hi: p.mid.Width}
	}
	return ClampRange(p.second.RequiredColRange(left, right), p.mid.Width)
}

func (p *Pair) RequiredColRange(left, right int) Range {
	c := p.firstCols(left, right)
	return p.first.RequiredColRange(c.Lo, c.Hi)
}

func (p *Pair) SimultaneousLines() int { return p.secondStep }

func (p *Pair) MaxBuffering() int { return p.maxBuffering }

// ContextSize is the sum of the children's contexts, one per child call.
// The intermediate cache is owned by the Pair, not by the context.
func (p *Pair) ContextSize() int {
	return p.firstCtxSize*p.firstCalls + p.secondCtxSize*p.secondCalls
}

func (p *Pair) TmpSize(left, right int) int {
	c := p.firstCols(left, right)
	return max(p.first.TmpSize(c.Lo, c.Hi), p.second.TmpSize(left, right))
}

func (p *Pair) firstCtx(ctx []byte, k int) []byte {
	off := k * p.firstCtxSize
	return ctx[off : off+p.firstCtxSize]
}

func (p *Pair) secondCtx(ctx []byte, k int) []byte {
	off := p.firstCtxSize*p.firstCalls + k*p.secondCtxSize
	return ctx[off : off+p.secondCtxSize]
}

func (p *Pair) InitContext(ctx []byte) {
	for k := 0; k < p.firstCalls; k++ {
		p.first.InitContext(p.firstCtx(ctx, k))
	}
	for k := 0; k < p.secondCalls; k++ {
		p.second.InitContext(p.secondCtx(ctx, k))
	}
	p.started = false
	p.cursor = 0
	p.lastRow = 0
	p.cols = Range{}
	p.buffered = 0
}

// Process fills the intermediate cache up to the rows the second stage
// needs for output rows starting at i, then runs the second stage.
//
// Row indices must not decrease within a run; a decreasing index panics
// with an error wrapping ErrRowOrder.
func (p *Pair) Process(ctx []byte, src, dst Buffer, tmp []byte, i, left, right int) {
	if p.started && i < p.lastRow {
		panic(fmt.Errorf("%w: row %d after row %d", ErrRowOrder, i, p.lastRow))
	}

	cols := p.firstCols(left, right)
	if p.started && cols != p.cols {
		if p.firstFlags.HasState {
			panic(fmt.Errorf("%w: columns %v after %v", ErrColumnRange, cols, p.cols))
		}
		// A stateless first stage restarts over the new columns.
		for k := 0; k < p.firstCalls; k++ {
			p.first.InitContext(p.firstCtx(ctx, k))
		}
		p.cursor = 0
	}
	p.started = true
	p.lastRow = i
	p.cols = cols

	need := ClampRange(p.second.RequiredRowRange(i), p.mid.Height)

	// Rows below the window are never read again. A stateless first stage
	// can skip them; a stateful one must see every row.
	if !p.firstFlags.HasState {
		p.cursor = max(p.cursor, alignDown(need.Lo, p.firstStep))
	}
	for p.cursor < need.Hi {
		p.runFirst(ctx, src, tmp, p.cursor, cols)
		p.cursor += p.firstStep
	}
	p.buffered = min(p.cursor, p.mid.Height) - need.Lo

	if p.secondCalls == 1 {
		p.second.Process(p.secondCtx(ctx, 0), p.cache, dst, tmp, i, left, right)
		return
	}
	for k := 0; k < p.secondCalls; k++ {
		p.second.Process(p.secondCtx(ctx, k), p.cache.Sub(k), dst.Sub(k), tmp, i, left, right)
	}
}

func (p *Pair) runFirst(ctx []byte, src Buffer, tmp []byte, row int, cols Range) {
	if p.firstCalls == 1 {
		p.first.Process(p.firstCtx(ctx, 0), src, p.cache, tmp, row, cols.Lo, cols.Hi)
		return
	}
	for k := 0; k < p.firstCalls; k++ {
		p.first.Process(p.firstCtx(ctx, k), src.Sub(k), p.cache.Sub(k), tmp, row, cols.Lo, cols.Hi)
	}
}

func (p *Pair) String() string {
	return fmt.Sprintf("Pair(%v -> %v -> %v, cache %d lines)", p.in, p.mid, p.out, p.cacheLines)
}
