package rowpipe

import "fmt"

// Flags declares the properties of a stage.
type Flags struct {
	// HasState means the stage keeps sequential state in its context and
	// must see rows in order within a run.
	HasState bool

	// SameRow means output row i depends only on input row i.
	SameRow bool

	// InPlace means dst may alias src.
	InPlace bool

	// EntireRow means the stage must be run over full rows.
	EntireRow bool

	// Color means the stage processes the colour planes together rather
	// than one plane at a time.
	Color bool
}

func (f Flags) String() string {
	return fmt.Sprintf("{state:%t same_row:%t in_place:%t entire_row:%t color:%t}",
		f.HasState, f.SameRow, f.InPlace, f.EntireRow, f.Color)
}

// Range is a half-open interval [Lo, Hi).
type Range struct {
	Lo int
	Hi int
}

// Len returns the number of elements in the range.
func (r Range) Len() int {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Union returns the smallest range covering r and o.
func (r Range) Union(o Range) Range {
	return Range{Lo: min(r.Lo, o.Lo), Hi: max(r.Hi, o.Hi)}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Lo, r.Hi)
}

// Stage is one pixel transform implementing the windowed buffering contract.
//
// Stages are immutable after construction (fused stages additionally own
// their intermediate cache). Everything a single run mutates lives in the
// caller-provided context and scratch slices.
type Stage interface {
	// Flags returns the declared properties of the stage.
	Flags() Flags

	// InputGeometry returns the shape of the frames the stage reads.
	InputGeometry() Geometry

	// OutputGeometry returns the shape of the frames the stage writes.
	OutputGeometry() Geometry

	// RequiredRowRange returns the input rows needed to produce the
	// SimultaneousLines output rows starting at i. i is a multiple of
	// SimultaneousLines. The range never moves backward as i grows.
	RequiredRowRange(i int) Range

	// RequiredColRange returns the input columns needed to produce the
	// output columns [left, right).
	RequiredColRange(left, right int) Range

	// SimultaneousLines returns the output rows produced per Process call.
	SimultaneousLines() int

	// MaxBuffering returns the largest RequiredRowRange length: the input
	// rows a caller must keep resident for one call.
	MaxBuffering() int

	// ContextSize returns the bytes of persistent per-run context.
	ContextSize() int

	// TmpSize returns the bytes of per-call scratch for columns [left, right).
	TmpSize(left, right int) int

	// InitContext resets a context to its initial state. It must be called
	// once before the first Process of a run and never during a run.
	InitContext(ctx []byte)

	// Process computes SimultaneousLines output rows starting at i for
	// columns [left, right). The last group may be partial when the output
	// height is not a multiple of SimultaneousLines.
	Process(ctx []byte, src, dst Buffer, tmp []byte, i, left, right int)
}

// StageFactory creates independent instances of a stage, one per
// concurrent execution stream.
type StageFactory func() (Stage, error)

// PlaneCount returns the number of planes a single Process call of s
// touches: 3 for colour-coupled stages, 1 otherwise.
func PlaneCount(s Stage) int {
	if s.Flags().Color {
		return 3
	}
	return 1
}

// FullRowRange returns the union of RequiredRowRange over every output
// row group of s.
func FullRowRange(s Stage) Range {
	step := s.SimultaneousLines()
	h := s.OutputGeometry().Height
	r := s.RequiredRowRange(0)
	for i := step; i < h; i += step {
		r = r.Union(s.RequiredRowRange(i))
	}
	return r
}

// ClampRange clamps r to [0, n).
func ClampRange(r Range, n int) Range {
	return Range{Lo: max(r.Lo, 0), Hi: min(r.Hi, n)}
}

func alignDown(n, step int) int { return n / step * step }

func alignUpTo(n, step int) int { return (n + step - 1) / step * step }
