package colorspace

import (
	"fmt"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/wide"
)

// Params configures a conversion stage over Float planes.
type Params struct {
	Width  int
	Height int

	From Definition
	To   Definition

	// CPU is the capability floor, TierAuto for the richest available.
	CPU rowpipe.Tier

	// Caps describes the hardware; nil uses rowpipe.DetectCapabilities.
	Caps *rowpipe.Capabilities
}

// matrixLineFunc applies m to columns [left, right) of three planes.
type matrixLineFunc func(m *[9]float32, src, dst [3][]float32, left, right int)

// MatrixStage applies a 3x3 matrix to the three planes of each row.
type MatrixStage struct {
	m      [9]float32
	width  int
	height int
	name   string
	line   matrixLineFunc
}

var _ rowpipe.Stage = (*MatrixStage)(nil)

// Name returns the implementation identity.
func (s *MatrixStage) Name() string { return s.name }

// Matrix returns the applied matrix.
func (s *MatrixStage) Matrix() [9]float32 { return s.m }

func (s *MatrixStage) Flags() rowpipe.Flags {
	return rowpipe.Flags{SameRow: true, InPlace: true, Color: true}
}

func (s *MatrixStage) InputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: s.width, Height: s.height, Pixel: rowpipe.PixelFloat}
}

func (s *MatrixStage) OutputGeometry() rowpipe.Geometry { return s.InputGeometry() }

func (s *MatrixStage) RequiredRowRange(i int) rowpipe.Range {
	return rowpipe.Range{Lo: i, Hi: min(i+1, s.height)}
}

func (s *MatrixStage) RequiredColRange(left, right int) rowpipe.Range {
	return rowpipe.Range{Lo: left, Hi: right}
}

func (s *MatrixStage) SimultaneousLines() int { return 1 }
func (s *MatrixStage) MaxBuffering() int      { return 1 }
func (s *MatrixStage) ContextSize() int       { return 0 }
func (s *MatrixStage) TmpSize(_, _ int) int   { return 0 }
func (s *MatrixStage) InitContext(_ []byte)   {}
func (s *MatrixStage) String() string         { return fmt.Sprintf("colorspace.Matrix(%s)", s.name) }

func (s *MatrixStage) Process(_ []byte, src, dst rowpipe.Buffer, _ []byte, i, left, right int) {
	var in, out [3][]float32
	for p := 0; p < 3; p++ {
		in[p] = rowpipe.Float32s(src[p].Row(i))
		out[p] = rowpipe.Float32s(dst[p].Row(i))
	}
	s.line(&s.m, in, out, left, right)
}

func matrixLine(m *[9]float32, src, dst [3][]float32, left, right int) {
	for x := left; x < right; x++ {
		a, b, c := src[0][x], src[1][x], src[2][x]
		dst[0][x] = m[0]*a + m[1]*b + m[2]*c
		dst[1][x] = m[3]*a + m[4]*b + m[5]*c
		dst[2][x] = m[6]*a + m[7]*b + m[8]*c
	}
}

func matrixLineF32x8(m *[9]float32, src, dst [3][]float32, left, right int) {
	x := left
	for ; x+8 <= right; x += 8 {
		a := wide.LoadF32x8(src[0][x:])
		b := wide.LoadF32x8(src[1][x:])
		c := wide.LoadF32x8(src[2][x:])
		for p := 0; p < 3; p++ {
			var acc wide.F32x8
			acc = acc.MulAddScalar(a, m[p*3]).MulAddScalar(b, m[p*3+1]).MulAddScalar(c, m[p*3+2])
			acc.Store(dst[p][x:])
		}
	}
	matrixLine(m, src, dst, x, right)
}

func matrixLineF32x4(m *[9]float32, src, dst [3][]float32, left, right int) {
	x := left
	for ; x+4 <= right; x += 4 {
		a := wide.LoadF32x4(src[0][x:])
		b := wide.LoadF32x4(src[1][x:])
		c := wide.LoadF32x4(src[2][x:])
		for p := 0; p < 3; p++ {
			var acc wide.F32x4
			acc = acc.MulAddScalar(a, m[p*3]).MulAddScalar(b, m[p*3+1]).MulAddScalar(c, m[p*3+2])
			acc.Store(dst[p][x:])
		}
	}
	matrixLine(m, src, dst, x, right)
}

type matrixArgs struct {
	m      [9]float32
	width  int
	height int
}

var matrixCandidates = []rowpipe.Candidate[matrixArgs]{
	{Tier: rowpipe.TierSIMD256, Name: "matrix/f32x8", Build: buildMatrix("matrix/f32x8", matrixLineF32x8)},
	{Tier: rowpipe.TierSIMD128, Name: "matrix/f32x4", Build: buildMatrix("matrix/f32x4", matrixLineF32x4)},
}

func buildMatrix(name string, line matrixLineFunc) func(matrixArgs) rowpipe.Stage {
	return func(a matrixArgs) rowpipe.Stage {
		return &MatrixStage{m: a.m, width: a.width, height: a.height, name: name, line: line}
	}
}

func (p *Params) caps() rowpipe.Capabilities {
	if p.Caps != nil {
		return *p.Caps
	}
	return rowpipe.DetectCapabilities()
}

// NewMatrix creates a stage applying m to frames of p.Width x p.Height.
// p.From and p.To are ignored.
func NewMatrix(p Params, m f64.Mat3) (rowpipe.Stage, error) {
	g := rowpipe.Geometry{Width: p.Width, Height: p.Height, Pixel: rowpipe.PixelFloat}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	args := matrixArgs{width: p.Width, height: p.Height}
	for k, v := range m {
		args.m[k] = float32(v)
	}
	sel := rowpipe.NewSelector("colorspace/matrix", p.caps(), matrixCandidates...)
	return sel.SelectOr(p.CPU, args, func(a matrixArgs) (rowpipe.Stage, error) {
		return buildMatrix("matrix/scalar", matrixLine)(a), nil
	})
}

// New creates a stage converting p.From to p.To.
func New(p Params) (rowpipe.Stage, error) {
	m, err := NewOperation(p.From, p.To)
	if err != nil {
		return nil, err
	}
	return NewMatrix(p, m)
}
