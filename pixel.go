package rowpipe

import "fmt"

// PixelType represents the numeric representation of one sample.
type PixelType uint8

const (
	// PixelByte is an unsigned 8-bit integer sample.
	PixelByte PixelType = iota

	// PixelWord is an unsigned 16-bit integer sample. Bit depth may be
	// lower than 16 (for example 10-bit video in the low bits).
	PixelWord

	// PixelFloat is a 32-bit IEEE float sample, nominally in [0, 1].
	PixelFloat

	// pixelTypeCount is the number of pixel types (for internal use).
	pixelTypeCount
)

// PixelInfo contains metadata about a pixel type.
type PixelInfo struct {
	// Size is the number of bytes per sample.
	Size int

	// MaxDepth is the largest bit depth the type can carry.
	MaxDepth int

	// IsFloat indicates a floating point type.
	IsFloat bool
}

var pixelInfoTable = [pixelTypeCount]PixelInfo{
	PixelByte:  {Size: 1, MaxDepth: 8},
	PixelWord:  {Size: 2, MaxDepth: 16},
	PixelFloat: {Size: 4, MaxDepth: 32, IsFloat: true},
}

// Info returns the PixelInfo for this type.
func (p PixelType) Info() PixelInfo {
	if p >= pixelTypeCount {
		return PixelInfo{}
	}
	return pixelInfoTable[p]
}

// Size returns the number of bytes per sample.
func (p PixelType) Size() int {
	return p.Info().Size
}

// IsFloat returns true for floating point types.
func (p PixelType) IsFloat() bool {
	return p.Info().IsFloat
}

// IsValid returns true if the type is a known pixel type.
func (p PixelType) IsValid() bool {
	return p < pixelTypeCount
}

// RowBytes calculates the number of bytes needed for a row of the given width.
func (p PixelType) RowBytes(width int) int {
	return width * p.Size()
}

// String returns a string representation of the pixel type.
func (p PixelType) String() string {
	switch p {
	case PixelByte:
		return "Byte"
	case PixelWord:
		return "Word"
	case PixelFloat:
		return "Float"
	default:
		return "Unknown"
	}
}

// CheckDepth validates a bit depth for the pixel type. A depth of 0 means
// the type's maximum.
func (p PixelType) CheckDepth(depth int) (int, error) {
	if !p.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedPixel, p)
	}
	if depth == 0 {
		return p.Info().MaxDepth, nil
	}
	if depth < 1 || depth > p.Info().MaxDepth || (p.IsFloat() && depth != 32) {
		return 0, fmt.Errorf("%w: %d-bit %v", ErrUnsupportedPixel, depth, p)
	}
	return depth, nil
}

// Geometry is the fixed shape of a stage's input or output.
type Geometry struct {
	Width  int
	Height int
	Pixel  PixelType
}

// Validate reports whether the geometry is usable.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, g.Width, g.Height)
	}
	if !g.Pixel.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedPixel, g.Pixel)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d:%v", g.Width, g.Height, g.Pixel)
}
