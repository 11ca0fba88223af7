package colorspace

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/rowpipe"
)

// ErrUnsupportedConversion is returned when no matrix relates two
// definitions.
var ErrUnsupportedConversion = errors.New("colorspace: unsupported conversion")

// Definition describes the colour representation of a three-plane frame.
type Definition struct {
	Matrix    MatrixCoefficients
	Primaries Primaries

	// Transfer is the curve applied to the RGB planes before Matrix.
	// The zero value is linear light.
	Transfer Transfer
}

func (d Definition) String() string {
	return fmt.Sprintf("%v/%v/%v", d.Matrix, d.Transfer, d.Primaries)
}

// toRGB returns the matrix from the coded planes of m to RGB.
func toRGB(m MatrixCoefficients) (f64.Mat3, error) {
	switch m {
	case MatrixRGB:
		return Identity, nil
	case MatrixYCgCo:
		return YCgCoToRGB(), nil
	case MatrixRec2100LMS:
		return LMSToRGB(), nil
	}
	if kr, kb, ok := lumaWeights(m); ok {
		return NclYUVToRGB(kr, kb), nil
	}
	return f64.Mat3{}, fmt.Errorf("%w: matrix %v", ErrUnsupportedConversion, m)
}

// fromRGB returns the matrix from RGB to the coded planes of m.
func fromRGB(m MatrixCoefficients) (f64.Mat3, error) {
	switch m {
	case MatrixRGB:
		return Identity, nil
	case MatrixYCgCo:
		return RGBToYCgCo(), nil
	case MatrixRec2100LMS:
		return RGBToLMS(), nil
	}
	if kr, kb, ok := lumaWeights(m); ok {
		return NclRGBToYUV(kr, kb), nil
	}
	return f64.Mat3{}, fmt.Errorf("%w: matrix %v", ErrUnsupportedConversion, m)
}

// gamut returns the RGB to RGB matrix between two sets of primaries.
func gamut(from, to Primaries) (f64.Mat3, error) {
	if from == to {
		return Identity, nil
	}
	if from == PrimariesUnspecified || to == PrimariesUnspecified {
		return f64.Mat3{}, fmt.Errorf("%w: primaries %v -> %v", ErrUnsupportedConversion, from, to)
	}
	src, ok := from.Chromaticities()
	if !ok {
		return f64.Mat3{}, fmt.Errorf("%w: primaries %v", ErrUnsupportedConversion, from)
	}
	dst, ok := to.Chromaticities()
	if !ok {
		return f64.Mat3{}, fmt.Errorf("%w: primaries %v", ErrUnsupportedConversion, to)
	}
	toXYZ, err := GamutRGBToXYZ(src, D65)
	if err != nil {
		return f64.Mat3{}, err
	}
	fromXYZ, err := GamutXYZToRGB(dst, D65)
	if err != nil {
		return f64.Mat3{}, err
	}
	return Mul(fromXYZ, toXYZ), nil
}

// NewOperation plans the conversion from one definition to another and
// returns it as a single matrix applied to (plane0, plane1, plane2).
// Transfer curves are ignored; see Chain.
func NewOperation(from, to Definition) (f64.Mat3, error) {
	in, err := toRGB(from.Matrix)
	if err != nil {
		return f64.Mat3{}, err
	}
	g, err := gamut(from.Primaries, to.Primaries)
	if err != nil {
		return f64.Mat3{}, err
	}
	out, err := fromRGB(to.Matrix)
	if err != nil {
		return f64.Mat3{}, err
	}
	m := Mul(out, Mul(g, in))
	rowpipe.Logger().Debug("colorspace: planned conversion",
		"from", from.String(), "to", to.String(), "identity", IsIdentity(m, 1e-12))
	return m, nil
}
