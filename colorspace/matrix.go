// Package colorspace converts between colour representations that are
// related by a 3x3 matrix: RGB and non-constant-luminance YUV, YCgCo,
// Rec.2100 LMS and gamut changes between sets of primaries.
//
// A conversion between two Definitions is planned once and folded into a
// single matrix, which a colour-coupled stage then applies to the three
// planes of every row.
package colorspace

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Identity is the 3x3 identity matrix.
var Identity = f64.Mat3{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

// Mul returns a*b (b is applied first).
func Mul(a, b f64.Mat3) f64.Mat3 {
	var m f64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += a[i*3+k] * b[k*3+j]
			}
			m[i*3+j] = s
		}
	}
	return m
}

// Apply returns m*v.
func Apply(m f64.Mat3, v f64.Vec3) f64.Vec3 {
	return f64.Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Transpose returns the transpose of m.
func Transpose(m f64.Mat3) f64.Mat3 {
	return f64.Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Det returns the determinant of m.
func Det(m f64.Mat3) float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Inverse returns the inverse of m. ok is false for singular matrices.
func Inverse(m f64.Mat3) (inv f64.Mat3, ok bool) {
	det := Det(m)
	if det == 0 || math.IsNaN(det) {
		return f64.Mat3{}, false
	}
	d := 1 / det
	return f64.Mat3{
		(m[4]*m[8] - m[5]*m[7]) * d,
		(m[2]*m[7] - m[1]*m[8]) * d,
		(m[1]*m[5] - m[2]*m[4]) * d,
		(m[5]*m[6] - m[3]*m[8]) * d,
		(m[0]*m[8] - m[2]*m[6]) * d,
		(m[2]*m[3] - m[0]*m[5]) * d,
		(m[3]*m[7] - m[4]*m[6]) * d,
		(m[1]*m[6] - m[0]*m[7]) * d,
		(m[0]*m[4] - m[1]*m[3]) * d,
	}, true
}

// IsIdentity reports whether m is the identity within eps.
func IsIdentity(m f64.Mat3, eps float64) bool {
	for i, v := range m {
		if math.Abs(v-Identity[i]) > eps {
			return false
		}
	}
	return true
}

// diag returns the diagonal matrix of v.
func diag(v f64.Vec3) f64.Mat3 {
	return f64.Mat3{
		v[0], 0, 0,
		0, v[1], 0,
		0, 0, v[2],
	}
}
