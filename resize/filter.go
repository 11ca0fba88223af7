// Package resize provides horizontal and vertical resampling stages.
//
// Coefficients are computed once per geometry from a
// [golang.org/x/image/draw.Kernel]; the stages then only read the
// coefficient table. Each pass has a portable implementation and
// lane-batched variants chosen by capability tier at construction.
package resize

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/draw"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/internal/cache"
)

// Filter names a resampling kernel.
type Filter uint8

const (
	// FilterPoint is nearest-neighbour sampling.
	FilterPoint Filter = iota

	// FilterBilinear is the triangle kernel.
	FilterBilinear

	// FilterBicubic is the Catmull-Rom cubic.
	FilterBicubic

	// FilterSpline is the cubic B-spline (smooth, not interpolating).
	FilterSpline

	// FilterLanczos is the 3-lobe Lanczos windowed sinc.
	FilterLanczos
)

var (
	pointKernel = &draw.Kernel{Support: 0.5, At: func(float64) float64 { return 1 }}

	splineKernel = &draw.Kernel{Support: 2, At: func(t float64) float64 {
		switch {
		case t < 1:
			return (4 + t*t*(3*t-6)) / 6
		case t < 2:
			u := 2 - t
			return u * u * u / 6
		}
		return 0
	}}

	lanczosKernel = &draw.Kernel{Support: 3, At: func(t float64) float64 {
		return sinc(t) * sinc(t/3)
	}}
)

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

// Kernel returns the kernel behind the filter, or nil for unknown filters.
func (f Filter) Kernel() *draw.Kernel {
	switch f {
	case FilterPoint:
		return pointKernel
	case FilterBilinear:
		return draw.BiLinear
	case FilterBicubic:
		return draw.CatmullRom
	case FilterSpline:
		return splineKernel
	case FilterLanczos:
		return lanczosKernel
	}
	return nil
}

func (f Filter) String() string {
	switch f {
	case FilterPoint:
		return "point"
	case FilterBilinear:
		return "bilinear"
	case FilterBicubic:
		return "bicubic"
	case FilterSpline:
		return "spline"
	case FilterLanczos:
		return "lanczos"
	}
	return fmt.Sprintf("Filter(%d)", uint8(f))
}

// ParseFilter parses a filter name as produced by Filter.String.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "nearest":
		return FilterPoint, nil
	case "bilinear", "linear":
		return FilterBilinear, nil
	case "bicubic", "catmull-rom":
		return FilterBicubic, nil
	case "spline", "bspline":
		return FilterSpline, nil
	case "lanczos", "lanczos3":
		return FilterLanczos, nil
	}
	return FilterPoint, fmt.Errorf("resize: unknown filter %q", s)
}

// filterKey identifies a coefficient table.
type filterKey struct {
	filter     Filter
	src, dst   int
	shift, sub float64
}

// filterTables memoises coefficient tables. Band runners construct one
// stage per band from the same parameters.
var filterTables = cache.New[filterKey, *FilterContext](64)

// filterTable returns the shared coefficient table for f. The table must
// not be modified.
func filterTable(f Filter, src, dst int, shift, sub float64) (*FilterContext, error) {
	key := filterKey{filter: f, src: src, dst: dst, shift: shift, sub: sub}
	return filterTables.GetOrCreate(key, func() (*FilterContext, error) {
		return ComputeFilter(f.Kernel(), src, dst, shift, sub)
	})
}

// TableStats reports the use of the shared coefficient tables.
type TableStats struct {
	Tables   int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// FilterTableStats returns a snapshot of the coefficient table memo.
func FilterTableStats() TableStats {
	st := filterTables.Stats()
	return TableStats{Tables: st.Len, Capacity: st.Capacity, Hits: st.Hits, Misses: st.Misses}
}

// FilterContext is the coefficient table of one resampling pass.
// Output sample j reads input samples [Left[j], Left[j]+FilterWidth)
// weighted by Data[j*FilterWidth:(j+1)*FilterWidth].
type FilterContext struct {
	FilterWidth int
	FilterRows  int
	InputWidth  int
	Data        []float32
	Left        []int
}

// Coeffs returns the weights of output sample j.
func (fc *FilterContext) Coeffs(j int) []float32 {
	return fc.Data[j*fc.FilterWidth : (j+1)*fc.FilterWidth]
}

// InputRange returns the input samples read by outputs [lo, hi).
func (fc *FilterContext) InputRange(lo, hi int) rowpipe.Range {
	if hi <= lo {
		return rowpipe.Range{Lo: fc.Left[lo], Hi: fc.Left[lo]}
	}
	return rowpipe.Range{Lo: fc.Left[lo], Hi: fc.Left[hi-1] + fc.FilterWidth}
}

// ComputeFilter builds the coefficient table mapping src samples to dst
// samples. shift offsets the source window and width is the length of the
// source window in samples (0 means src). Taps falling outside the image
// are folded onto the nearest edge sample and each row of weights is
// normalised to sum to one.
func ComputeFilter(k *draw.Kernel, src, dst int, shift, width float64) (*FilterContext, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil kernel", rowpipe.ErrInvalidGeometry)
	}
	if src <= 0 || dst <= 0 {
		return nil, fmt.Errorf("%w: resize %d -> %d", rowpipe.ErrInvalidGeometry, src, dst)
	}
	if width == 0 {
		width = float64(src)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: source window %g", rowpipe.ErrInvalidGeometry, width)
	}

	scale := float64(dst) / width
	step := min(scale, 1)
	support := k.Support / step

	fw := min(int(math.Ceil(2*support))+1, src)
	fc := &FilterContext{
		FilterWidth: fw,
		FilterRows:  dst,
		InputWidth:  src,
		Data:        make([]float32, fw*dst),
		Left:        make([]int, dst),
	}

	weights := make([]float64, fw)
	for j := 0; j < dst; j++ {
		pos := shift + (float64(j)+0.5)/scale - 0.5
		begin := int(math.Floor(pos-support)) + 1
		end := int(math.Floor(pos + support))
		left := min(max(begin, 0), src-fw)

		clear(weights)
		sum := 0.0
		for x := begin; x <= end; x++ {
			// Kernels are symmetric and only defined on [0, Support).
			d := math.Abs(float64(x)-pos) * step
			if d >= k.Support {
				continue
			}
			w := k.At(d)
			if w == 0 {
				continue
			}
			idx := min(max(x, 0), src-1) - left
			if idx < 0 || idx >= fw {
				continue
			}
			weights[idx] += w
			sum += w
		}
		if sum == 0 {
			nearest := min(max(int(math.Floor(pos+0.5)), left), left+fw-1)
			weights[nearest-left] = 1
			sum = 1
		}

		fc.Left[j] = left
		row := fc.Coeffs(j)
		for i, w := range weights {
			row[i] = float32(w / sum)
		}
	}
	return fc, nil
}
