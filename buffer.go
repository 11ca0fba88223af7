package rowpipe

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/rowpipe/internal/sample"
)

// Alignment is the byte alignment of strides and arena regions.
const Alignment = 64

// BufferMax is the row mask of a plane that holds every row of an image.
const BufferMax = -1

// AlignUp rounds n up to a multiple of Alignment.
func AlignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Plane is one colour plane of a buffer. Row r lives at
// Data[(r&Mask)*Stride:]. Ring buffers use Mask = lines-1 with a
// power-of-two line count; full frames use BufferMax.
type Plane struct {
	Data   []byte
	Stride int
	Mask   int
}

// Row returns the bytes of row r. The slice spans the whole stride.
func (p Plane) Row(r int) []byte {
	off := (r & p.Mask) * p.Stride
	return p.Data[off : off+p.Stride]
}

// Lines returns the number of distinct rows the plane can hold.
func (p Plane) Lines() int {
	if p.Stride == 0 {
		return 0
	}
	n := len(p.Data) / p.Stride
	if p.Mask != BufferMax && p.Mask+1 < n {
		n = p.Mask + 1
	}
	return n
}

// Buffer is a set of planes processed together. Stages that are not
// colour coupled are handed single-plane buffers.
type Buffer []Plane

// Plane returns plane p.
func (b Buffer) Plane(p int) Plane { return b[p] }

// Sub returns the single-plane buffer for plane p.
func (b Buffer) Sub(p int) Buffer { return b[p : p+1] }

// AllocBuffer allocates a full-frame buffer with aligned strides.
func AllocBuffer(g Geometry, planes int) (Buffer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if planes <= 0 {
		return nil, fmt.Errorf("%w: %d planes", ErrInvalidGeometry, planes)
	}
	stride := AlignUp(g.Pixel.RowBytes(g.Width))
	buf := make(Buffer, planes)
	for p := range buf {
		buf[p] = Plane{Data: make([]byte, stride*g.Height), Stride: stride, Mask: BufferMax}
	}
	return buf, nil
}

// allocRing allocates planes holding lines rows each. lines must be a
// power of two unless full is set.
func allocRing(g Geometry, planes, lines int, full bool) Buffer {
	stride := AlignUp(g.Pixel.RowBytes(g.Width))
	mask := lines - 1
	if full {
		mask = BufferMax
	}
	buf := make(Buffer, planes)
	for p := range buf {
		buf[p] = Plane{Data: make([]byte, stride*lines), Stride: stride, Mask: mask}
	}
	return buf
}

// CheckBuffer validates that buf has at least planes planes, each able to
// hold width samples of the given pixel type for rows [0, height).
func CheckBuffer(buf Buffer, g Geometry, planes int) error {
	if len(buf) < planes {
		return fmt.Errorf("%w: have %d planes, need %d", ErrBufferTooSmall, len(buf), planes)
	}
	need := g.Pixel.RowBytes(g.Width)
	for i := 0; i < planes; i++ {
		p := buf[i]
		if p.Stride < need {
			return fmt.Errorf("%w: plane %d stride %d < %d", ErrBufferTooSmall, i, p.Stride, need)
		}
		rows := g.Height
		if p.Mask != BufferMax && p.Mask+1 < rows {
			rows = p.Mask + 1
		}
		if len(p.Data) < p.Stride*rows {
			return fmt.Errorf("%w: plane %d holds %d bytes, need %d", ErrBufferTooSmall, i, len(p.Data), p.Stride*rows)
		}
	}
	return nil
}

// Float32s reinterprets a row as float32 samples.
func Float32s(row []byte) []float32 {
	return sample.View[float32](row)
}

// Uint16s reinterprets a row as uint16 samples.
func Uint16s(row []byte) []uint16 {
	return sample.View[uint16](row)
}

// ceilPow2 returns the smallest power of two >= n (n >= 1).
func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
