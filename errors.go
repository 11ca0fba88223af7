package rowpipe

import "errors"

// Construction-time configuration errors. Constructors wrap these with
// detail; test with errors.Is.
var (
	// ErrNilStage is returned when a nil stage is passed to fusion.
	ErrNilStage = errors.New("rowpipe: nil stage")

	// ErrGeometryMismatch is returned when the first stage's output
	// geometry differs from the second stage's input geometry.
	ErrGeometryMismatch = errors.New("rowpipe: geometry mismatch")

	// ErrInvalidGeometry is returned for non-positive dimensions.
	ErrInvalidGeometry = errors.New("rowpipe: invalid geometry")

	// ErrUnsupportedPixel is returned when a stage cannot handle a pixel type.
	ErrUnsupportedPixel = errors.New("rowpipe: unsupported pixel type")

	// ErrInvalidTier is returned for an unknown capability tier.
	ErrInvalidTier = errors.New("rowpipe: invalid capability tier")

	// ErrBufferTooSmall is returned when a buffer cannot hold the rows
	// a run needs.
	ErrBufferTooSmall = errors.New("rowpipe: buffer too small")
)

// Contract violations. Process panics with an error wrapping one of these;
// they are not part of the recoverable error taxonomy.
var (
	// ErrRowOrder reports a row index lower than the previous call's.
	ErrRowOrder = errors.New("rowpipe: row index out of order")

	// ErrColumnRange reports a column range change in the middle of a run
	// on a stage that cannot recompute its cached rows.
	ErrColumnRange = errors.New("rowpipe: column range changed mid-run")
)
