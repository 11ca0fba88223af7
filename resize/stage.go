package resize

import (
	"fmt"

	"github.com/gogpu/rowpipe"
)

// Horizontal resamples each row independently.
type Horizontal struct {
	fc     *FilterContext
	height int
	pixel  rowpipe.PixelType
	name   string
	line   hLineFunc
}

var _ rowpipe.Stage = (*Horizontal)(nil)

// Name returns the implementation identity.
func (h *Horizontal) Name() string { return h.name }

// Filter returns the coefficient table.
func (h *Horizontal) Filter() *FilterContext { return h.fc }

func (h *Horizontal) Flags() rowpipe.Flags {
	return rowpipe.Flags{SameRow: true}
}

func (h *Horizontal) InputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: h.fc.InputWidth, Height: h.height, Pixel: h.pixel}
}

func (h *Horizontal) OutputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: h.fc.FilterRows, Height: h.height, Pixel: h.pixel}
}

func (h *Horizontal) RequiredRowRange(i int) rowpipe.Range {
	return rowpipe.Range{Lo: i, Hi: min(i+1, h.height)}
}

func (h *Horizontal) RequiredColRange(left, right int) rowpipe.Range {
	return h.fc.InputRange(left, right)
}

func (h *Horizontal) SimultaneousLines() int { return 1 }
func (h *Horizontal) MaxBuffering() int      { return 1 }
func (h *Horizontal) ContextSize() int       { return 0 }
func (h *Horizontal) TmpSize(_, _ int) int   { return 0 }
func (h *Horizontal) InitContext(_ []byte)   {}
func (h *Horizontal) String() string         { return fmt.Sprintf("resize.Horizontal(%s)", h.name) }

func (h *Horizontal) Process(_ []byte, src, dst rowpipe.Buffer, _ []byte, i, left, right int) {
	h.line(h.fc, src[0].Row(i), dst[0].Row(i), left, right)
}

// Vertical resamples each column independently.
type Vertical struct {
	fc    *FilterContext
	width int
	pixel rowpipe.PixelType
	name  string
	line  vLineFunc
}

var _ rowpipe.Stage = (*Vertical)(nil)

// Name returns the implementation identity.
func (v *Vertical) Name() string { return v.name }

// Filter returns the coefficient table.
func (v *Vertical) Filter() *FilterContext { return v.fc }

func (v *Vertical) Flags() rowpipe.Flags { return rowpipe.Flags{} }

func (v *Vertical) InputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: v.width, Height: v.fc.InputWidth, Pixel: v.pixel}
}

func (v *Vertical) OutputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: v.width, Height: v.fc.FilterRows, Pixel: v.pixel}
}

func (v *Vertical) RequiredRowRange(i int) rowpipe.Range {
	return v.fc.InputRange(i, i+1)
}

func (v *Vertical) RequiredColRange(left, right int) rowpipe.Range {
	return rowpipe.Range{Lo: left, Hi: right}
}

func (v *Vertical) SimultaneousLines() int { return 1 }
func (v *Vertical) MaxBuffering() int      { return v.fc.FilterWidth }
func (v *Vertical) ContextSize() int       { return 0 }
func (v *Vertical) InitContext(_ []byte)   {}
func (v *Vertical) String() string         { return fmt.Sprintf("resize.Vertical(%s)", v.name) }

// TmpSize is one float accumulator per column for integer pixels. Float
// pixels accumulate in the destination row.
func (v *Vertical) TmpSize(left, right int) int {
	if v.pixel.IsFloat() {
		return 0
	}
	return rowpipe.AlignUp((right - left) * 4)
}

func (v *Vertical) Process(_ []byte, src, dst rowpipe.Buffer, tmp []byte, i, left, right int) {
	v.line(src[0], v.fc.Left[i], v.fc.Coeffs(i), tmp, dst[0].Row(i), left, right)
}
