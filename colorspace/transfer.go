package colorspace

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/color"
)

// Transfer names the curve relating coded RGB values to linear light.
type Transfer uint8

const (
	// TransferLinear is linear light.
	TransferLinear Transfer = iota

	// TransferSRGB is the IEC 61966-2-1 curve.
	TransferSRGB

	// TransferRec709 is the BT.709 / BT.2020 camera curve.
	TransferRec709

	transferCount
)

func (t Transfer) String() string {
	switch t {
	case TransferLinear:
		return "linear"
	case TransferSRGB:
		return "srgb"
	case TransferRec709:
		return "709"
	}
	return fmt.Sprintf("Transfer(%d)", uint8(t))
}

// ParseTransfer parses a transfer name as produced by Transfer.String.
func ParseTransfer(s string) (Transfer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return TransferLinear, nil
	case "srgb", "iec61966-2-1":
		return TransferSRGB, nil
	case "709", "bt709", "2020":
		return TransferRec709, nil
	}
	return TransferLinear, fmt.Errorf("colorspace: unknown transfer %q", s)
}

var (
	tablesOnce sync.Once
	tables     [transferCount][2]*color.Table
)

// table returns the decoding (toLinear) or encoding curve of t.
func table(t Transfer, toLinear bool) *color.Table {
	tablesOnce.Do(func() {
		tables[TransferSRGB] = [2]*color.Table{color.NewTable(color.LinearToSRGB), color.NewTable(color.SRGBToLinear)}
		tables[TransferRec709] = [2]*color.Table{color.NewTable(color.LinearToRec709), color.NewTable(color.Rec709ToLinear)}
	})
	if toLinear {
		return tables[t][1]
	}
	return tables[t][0]
}

// TransferStage applies a transfer curve to each Float plane.
type TransferStage struct {
	table    *color.Table
	transfer Transfer
	toLinear bool
	width    int
	height   int
}

var _ rowpipe.Stage = (*TransferStage)(nil)

// NewTransfer creates a stage decoding t to linear light, or encoding
// linear light with t when toLinear is false.
func NewTransfer(width, height int, t Transfer, toLinear bool) (*TransferStage, error) {
	g := rowpipe.Geometry{Width: width, Height: height, Pixel: rowpipe.PixelFloat}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if t == TransferLinear || t >= transferCount {
		return nil, fmt.Errorf("%w: transfer %v", ErrUnsupportedConversion, t)
	}
	return &TransferStage{table: table(t, toLinear), transfer: t, toLinear: toLinear, width: width, height: height}, nil
}

func (s *TransferStage) Flags() rowpipe.Flags {
	return rowpipe.Flags{SameRow: true, InPlace: true}
}

func (s *TransferStage) InputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: s.width, Height: s.height, Pixel: rowpipe.PixelFloat}
}

func (s *TransferStage) OutputGeometry() rowpipe.Geometry { return s.InputGeometry() }

func (s *TransferStage) RequiredRowRange(i int) rowpipe.Range {
	return rowpipe.Range{Lo: i, Hi: i + 1}
}

func (s *TransferStage) RequiredColRange(left, right int) rowpipe.Range {
	return rowpipe.Range{Lo: left, Hi: right}
}

func (s *TransferStage) SimultaneousLines() int { return 1 }
func (s *TransferStage) MaxBuffering() int      { return 1 }
func (s *TransferStage) ContextSize() int       { return 0 }
func (s *TransferStage) TmpSize(_, _ int) int   { return 0 }
func (s *TransferStage) InitContext(_ []byte)   {}

func (s *TransferStage) String() string {
	if s.toLinear {
		return fmt.Sprintf("colorspace.Transfer(%v -> linear)", s.transfer)
	}
	return fmt.Sprintf("colorspace.Transfer(linear -> %v)", s.transfer)
}

func (s *TransferStage) Process(_ []byte, src, dst rowpipe.Buffer, _ []byte, i, left, right int) {
	in := rowpipe.Float32s(src[0].Row(i))
	out := rowpipe.Float32s(dst[0].Row(i))
	for x := left; x < right; x++ {
		out[x] = s.table.At(in[x])
	}
}

// Chain returns the stages converting p.From to p.To in execution order.
// When the transfer curves match and the gamut is unchanged the
// conversion is a single matrix, as from New. Otherwise the frame is
// taken to linear RGB, mapped between gamuts and re-encoded.
func Chain(p Params) ([]rowpipe.Stage, error) {
	from, to := p.From, p.To
	if from.Transfer == to.Transfer && (from.Primaries == to.Primaries || from.Transfer == TransferLinear) {
		s, err := New(p)
		if err != nil {
			return nil, err
		}
		return []rowpipe.Stage{s}, nil
	}

	in, err := toRGB(from.Matrix)
	if err != nil {
		return nil, err
	}
	g, err := gamut(from.Primaries, to.Primaries)
	if err != nil {
		return nil, err
	}
	out, err := fromRGB(to.Matrix)
	if err != nil {
		return nil, err
	}

	var stages []rowpipe.Stage
	addMatrix := func(m f64.Mat3) error {
		if IsIdentity(m, 1e-12) {
			return nil
		}
		s, err := NewMatrix(p, m)
		if err != nil {
			return err
		}
		stages = append(stages, s)
		return nil
	}
	addTransfer := func(t Transfer, toLinear bool) error {
		if t == TransferLinear {
			return nil
		}
		s, err := NewTransfer(p.Width, p.Height, t, toLinear)
		if err != nil {
			return err
		}
		stages = append(stages, s)
		return nil
	}

	if err := addMatrix(in); err != nil {
		return nil, err
	}
	if err := addTransfer(from.Transfer, true); err != nil {
		return nil, err
	}
	if err := addMatrix(g); err != nil {
		return nil, err
	}
	if err := addTransfer(to.Transfer, false); err != nil {
		return nil, err
	}
	if err := addMatrix(out); err != nil {
		return nil, err
	}
	rowpipe.Logger().Debug("colorspace: planned chain",
		"from", from.String(), "to", to.String(), "stages", len(stages))
	return stages, nil
}
