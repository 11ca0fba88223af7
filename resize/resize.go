package resize

import (
	"fmt"

	"github.com/gogpu/rowpipe"
)

// Params describes a resize of one plane.
type Params struct {
	Filter Filter

	SrcWidth  int
	SrcHeight int
	DstWidth  int
	DstHeight int

	// ShiftW and ShiftH offset the source window, in source samples.
	ShiftW float64
	ShiftH float64

	// SubWidth and SubHeight are the source window size; 0 means the
	// whole source.
	SubWidth  float64
	SubHeight float64

	Pixel rowpipe.PixelType

	// Depth is the bit depth of integer samples; 0 means the type's maximum.
	Depth int

	// CPU is the capability floor, TierAuto for the richest available.
	CPU rowpipe.Tier

	// Caps describes the hardware; nil uses rowpipe.DetectCapabilities.
	Caps *rowpipe.Capabilities
}

func (p *Params) caps() rowpipe.Capabilities {
	if p.Caps != nil {
		return *p.Caps
	}
	return rowpipe.DetectCapabilities()
}

func (p *Params) validate() (int, error) {
	if p.SrcWidth <= 0 || p.SrcHeight <= 0 || p.DstWidth <= 0 || p.DstHeight <= 0 {
		return 0, fmt.Errorf("%w: resize %dx%d -> %dx%d", rowpipe.ErrInvalidGeometry,
			p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight)
	}
	if p.Filter.Kernel() == nil {
		return 0, fmt.Errorf("resize: unknown filter %v", p.Filter)
	}
	if err := p.CPU.Validate(); err != nil {
		return 0, err
	}
	return p.Pixel.CheckDepth(p.Depth)
}

func (p *Params) horizontalIdentity() bool {
	return p.SrcWidth == p.DstWidth && p.ShiftW == 0 && (p.SubWidth == 0 || p.SubWidth == float64(p.SrcWidth))
}

func (p *Params) verticalIdentity() bool {
	return p.SrcHeight == p.DstHeight && p.ShiftH == 0 && (p.SubHeight == 0 || p.SubHeight == float64(p.SrcHeight))
}

type hArgs struct {
	fc     *FilterContext
	height int
	pixel  rowpipe.PixelType
	depth  int
}

type vArgs struct {
	fc    *FilterContext
	width int
	pixel rowpipe.PixelType
	depth int
}

func horizontalSelector(caps rowpipe.Capabilities) *rowpipe.Selector[hArgs] {
	return rowpipe.NewSelector("resize/h", caps,
		rowpipe.Candidate[hArgs]{Tier: rowpipe.TierSIMD256, Name: "h/f32x8", Build: func(a hArgs) rowpipe.Stage {
			if a.pixel != rowpipe.PixelFloat {
				return nil
			}
			return &Horizontal{fc: a.fc, height: a.height, pixel: a.pixel, name: "h/f32x8", line: hLineF32x8}
		}},
	)
}

func verticalSelector(caps rowpipe.Capabilities) *rowpipe.Selector[vArgs] {
	build := func(name string, line vLineFunc) func(vArgs) rowpipe.Stage {
		return func(a vArgs) rowpipe.Stage {
			if a.pixel != rowpipe.PixelFloat {
				return nil
			}
			return &Vertical{fc: a.fc, width: a.width, pixel: a.pixel, name: name, line: line}
		}
	}
	return rowpipe.NewSelector("resize/v", caps,
		rowpipe.Candidate[vArgs]{Tier: rowpipe.TierSIMD256, Name: "v/f32x8", Build: build("v/f32x8", vLineF32x8)},
		rowpipe.Candidate[vArgs]{Tier: rowpipe.TierSIMD128, Name: "v/f32x4", Build: build("v/f32x4", vLineF32x4)},
	)
}

func newHorizontal(p *Params, height, depth int) (rowpipe.Stage, error) {
	fc, err := filterTable(p.Filter, p.SrcWidth, p.DstWidth, p.ShiftW, p.SubWidth)
	if err != nil {
		return nil, err
	}
	args := hArgs{fc: fc, height: height, pixel: p.Pixel, depth: depth}
	return horizontalSelector(p.caps()).SelectOr(p.CPU, args, func(a hArgs) (rowpipe.Stage, error) {
		return &Horizontal{fc: a.fc, height: a.height, pixel: a.pixel, name: "h/scalar", line: hBaseline(a.pixel, a.depth)}, nil
	})
}

func newVertical(p *Params, width, depth int) (rowpipe.Stage, error) {
	fc, err := filterTable(p.Filter, p.SrcHeight, p.DstHeight, p.ShiftH, p.SubHeight)
	if err != nil {
		return nil, err
	}
	args := vArgs{fc: fc, width: width, pixel: p.Pixel, depth: depth}
	return verticalSelector(p.caps()).SelectOr(p.CPU, args, func(a vArgs) (rowpipe.Stage, error) {
		return &Vertical{fc: a.fc, width: a.width, pixel: a.pixel, name: "v/scalar", line: vBaseline(a.pixel, a.depth)}, nil
	})
}

// NewHorizontal creates the horizontal pass over the source height:
// SrcWidth x SrcHeight -> DstWidth x SrcHeight.
func NewHorizontal(p Params) (rowpipe.Stage, error) {
	depth, err := p.validate()
	if err != nil {
		return nil, err
	}
	return newHorizontal(&p, p.SrcHeight, depth)
}

// NewVertical creates the vertical pass over the destination width:
// DstWidth x SrcHeight -> DstWidth x DstHeight.
func NewVertical(p Params) (rowpipe.Stage, error) {
	depth, err := p.validate()
	if err != nil {
		return nil, err
	}
	return newVertical(&p, p.DstWidth, depth)
}

// New returns the passes of a resize in execution order. A dimension that
// does not change is skipped unless both are unchanged, in which case a
// single vertical pass copies the plane. When both dimensions change, the
// pass with the smaller scale factor runs first so the second pass sees
// fewer samples.
func New(p Params) ([]rowpipe.Stage, error) {
	depth, err := p.validate()
	if err != nil {
		return nil, err
	}

	skipH := p.horizontalIdentity()
	skipV := p.verticalIdentity()
	switch {
	case skipH && skipV:
		v, err := newVertical(&p, p.SrcWidth, depth)
		if err != nil {
			return nil, err
		}
		return []rowpipe.Stage{v}, nil
	case skipV:
		h, err := newHorizontal(&p, p.SrcHeight, depth)
		if err != nil {
			return nil, err
		}
		return []rowpipe.Stage{h}, nil
	case skipH:
		v, err := newVertical(&p, p.SrcWidth, depth)
		if err != nil {
			return nil, err
		}
		return []rowpipe.Stage{v}, nil
	}

	xscale := float64(p.DstWidth) / float64(p.SrcWidth)
	yscale := float64(p.DstHeight) / float64(p.SrcHeight)
	if xscale <= yscale {
		h, err := newHorizontal(&p, p.SrcHeight, depth)
		if err != nil {
			return nil, err
		}
		v, err := newVertical(&p, p.DstWidth, depth)
		if err != nil {
			return nil, err
		}
		return []rowpipe.Stage{h, v}, nil
	}

	v, err := newVertical(&p, p.SrcWidth, depth)
	if err != nil {
		return nil, err
	}
	h, err := newHorizontal(&p, p.DstHeight, depth)
	if err != nil {
		return nil, err
	}
	return []rowpipe.Stage{v, h}, nil
}
