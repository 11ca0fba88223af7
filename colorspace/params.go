package colorspace

import (
	"fmt"
	"strings"

	"golang.org/x/image/math/f64"
)

// MatrixCoefficients names the relation between RGB and the coded planes.
type MatrixCoefficients uint8

const (
	// MatrixRGB means the planes are R, G, B.
	MatrixRGB MatrixCoefficients = iota

	// MatrixRec601 is non-constant-luminance YCbCr with SMPTE 170M weights.
	MatrixRec601

	// MatrixRec709 is non-constant-luminance YCbCr with BT.709 weights.
	MatrixRec709

	// MatrixRec2020 is non-constant-luminance YCbCr with BT.2020 weights.
	MatrixRec2020

	// MatrixYCgCo is the YCgCo transform.
	MatrixYCgCo

	// MatrixRec2100LMS is the BT.2100 RGB to LMS cone response transform.
	MatrixRec2100LMS
)

func (m MatrixCoefficients) String() string {
	switch m {
	case MatrixRGB:
		return "rgb"
	case MatrixRec601:
		return "601"
	case MatrixRec709:
		return "709"
	case MatrixRec2020:
		return "2020"
	case MatrixYCgCo:
		return "ycgco"
	case MatrixRec2100LMS:
		return "lms"
	}
	return fmt.Sprintf("MatrixCoefficients(%d)", uint8(m))
}

// Primaries names a set of RGB chromaticities with a D65 white point.
type Primaries uint8

const (
	// PrimariesUnspecified leaves the gamut unchanged.
	PrimariesUnspecified Primaries = iota

	// PrimariesSMPTEC is SMPTE 170M / SMPTE C.
	PrimariesSMPTEC

	// PrimariesRec709 is BT.709 / sRGB.
	PrimariesRec709

	// PrimariesRec2020 is BT.2020 / BT.2100.
	PrimariesRec2020

	// PrimariesDCIP3D65 is DCI-P3 with a D65 white point (Display P3).
	PrimariesDCIP3D65
)

func (p Primaries) String() string {
	switch p {
	case PrimariesUnspecified:
		return "unspecified"
	case PrimariesSMPTEC:
		return "smpte-c"
	case PrimariesRec709:
		return "709"
	case PrimariesRec2020:
		return "2020"
	case PrimariesDCIP3D65:
		return "p3-d65"
	}
	return fmt.Sprintf("Primaries(%d)", uint8(p))
}

// ParsePrimaries parses a primaries name as produced by Primaries.String.
func ParsePrimaries(s string) (Primaries, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified":
		return PrimariesUnspecified, nil
	case "smpte-c", "smptec", "601":
		return PrimariesSMPTEC, nil
	case "709", "bt709", "srgb":
		return PrimariesRec709, nil
	case "2020", "bt2020", "2100":
		return PrimariesRec2020, nil
	case "p3-d65", "p3", "display-p3":
		return PrimariesDCIP3D65, nil
	}
	return PrimariesUnspecified, fmt.Errorf("colorspace: unknown primaries %q", s)
}

// Chromaticity is a CIE 1931 xy coordinate.
type Chromaticity struct {
	X, Y float64
}

// XYZ returns the tristimulus value with luminance 1.
func (c Chromaticity) XYZ() f64.Vec3 {
	return f64.Vec3{c.X / c.Y, 1, (1 - c.X - c.Y) / c.Y}
}

// D65 is the CIE standard illuminant D65.
var D65 = Chromaticity{X: 0.3127, Y: 0.3290}

var primariesTable = map[Primaries][3]Chromaticity{
	PrimariesSMPTEC:   {{0.630, 0.340}, {0.310, 0.595}, {0.155, 0.070}},
	PrimariesRec709:   {{0.640, 0.330}, {0.300, 0.600}, {0.150, 0.060}},
	PrimariesRec2020:  {{0.708, 0.292}, {0.170, 0.797}, {0.131, 0.046}},
	PrimariesDCIP3D65: {{0.680, 0.320}, {0.265, 0.690}, {0.150, 0.060}},
}

// Chromaticities returns the red, green and blue chromaticities of p.
func (p Primaries) Chromaticities() ([3]Chromaticity, bool) {
	c, ok := primariesTable[p]
	return c, ok
}

// lumaWeights returns Kr, Kb of a YCbCr matrix.
func lumaWeights(m MatrixCoefficients) (kr, kb float64, ok bool) {
	switch m {
	case MatrixRec601:
		return 0.299, 0.114, true
	case MatrixRec709:
		return 0.2126, 0.0722, true
	case MatrixRec2020:
		return 0.2627, 0.0593, true
	}
	return 0, 0, false
}

// NclRGBToYUV returns the non-constant-luminance RGB to YCbCr matrix for
// luma weights kr and kb. Chroma is centred on zero in [-0.5, 0.5].
func NclRGBToYUV(kr, kb float64) f64.Mat3 {
	kg := 1 - kr - kb
	uscale := 1 / (2 - 2*kb)
	vscale := 1 / (2 - 2*kr)
	return f64.Mat3{
		kr, kg, kb,
		-kr * uscale, -kg * uscale, (1 - kb) * uscale,
		(1 - kr) * vscale, -kg * vscale, -kb * vscale,
	}
}

// NclYUVToRGB is the inverse of NclRGBToYUV.
func NclYUVToRGB(kr, kb float64) f64.Mat3 {
	inv, _ := Inverse(NclRGBToYUV(kr, kb))
	return inv
}

// RGBToYCgCo returns the YCgCo forward matrix.
func RGBToYCgCo() f64.Mat3 {
	return f64.Mat3{
		0.25, 0.5, 0.25,
		-0.25, 0.5, -0.25,
		0.5, 0, -0.5,
	}
}

// YCgCoToRGB returns the YCgCo inverse matrix.
func YCgCoToRGB() f64.Mat3 {
	return f64.Mat3{
		1, -1, 1,
		1, 1, 0,
		1, -1, -1,
	}
}

// RGBToLMS returns the BT.2100 RGB to LMS matrix.
func RGBToLMS() f64.Mat3 {
	return f64.Mat3{
		1688.0 / 4096, 2146.0 / 4096, 262.0 / 4096,
		683.0 / 4096, 2951.0 / 4096, 462.0 / 4096,
		99.0 / 4096, 309.0 / 4096, 3688.0 / 4096,
	}
}

// LMSToRGB is the inverse of RGBToLMS.
func LMSToRGB() f64.Mat3 {
	inv, _ := Inverse(RGBToLMS())
	return inv
}

// LMSToICtCp returns the BT.2100 matrix from transfer-encoded L'M'S' to
// ICtCp. The transfer function itself is applied outside this package.
func LMSToICtCp() f64.Mat3 {
	return f64.Mat3{
		2048.0 / 4096, 2048.0 / 4096, 0,
		6610.0 / 4096, -13613.0 / 4096, 7003.0 / 4096,
		17933.0 / 4096, -17390.0 / 4096, -543.0 / 4096,
	}
}

// ICtCpToLMS is the inverse of LMSToICtCp.
func ICtCpToLMS() f64.Mat3 {
	inv, _ := Inverse(LMSToICtCp())
	return inv
}

// GamutRGBToXYZ returns the matrix from linear RGB in primaries p with
// white point w to CIE XYZ, scaled so that RGB white maps to Y = 1.
func GamutRGBToXYZ(p [3]Chromaticity, w Chromaticity) (f64.Mat3, error) {
	r, g, b := p[0].XYZ(), p[1].XYZ(), p[2].XYZ()
	m := f64.Mat3{
		r[0], g[0], b[0],
		r[1], g[1], b[1],
		r[2], g[2], b[2],
	}
	inv, ok := Inverse(m)
	if !ok {
		return f64.Mat3{}, fmt.Errorf("%w: degenerate primaries", ErrUnsupportedConversion)
	}
	s := Apply(inv, w.XYZ())
	return Mul(m, diag(s)), nil
}

// GamutXYZToRGB is the inverse of GamutRGBToXYZ.
func GamutXYZToRGB(p [3]Chromaticity, w Chromaticity) (f64.Mat3, error) {
	m, err := GamutRGBToXYZ(p, w)
	if err != nil {
		return f64.Mat3{}, err
	}
	inv, ok := Inverse(m)
	if !ok {
		return f64.Mat3{}, fmt.Errorf("%w: degenerate primaries", ErrUnsupportedConversion)
	}
	return inv, nil
}
