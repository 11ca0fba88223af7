// Package rowpipe provides windowed, streaming pixel transforms.
//
// # Overview
//
// A transform is expressed as a [Stage]: a self-describing unit that,
// for any output row it is asked to produce, declares which input rows
// and columns it needs and how much context and scratch memory a call
// requires. Stages never see whole frames unless they ask for them.
//
// Two stages can be fused with [NewPair]. The fused stage satisfies the
// same contract as its children, so fusion is closed under composition:
//
//	h, _ := resize.NewHorizontal(params)
//	v, _ := resize.NewVertical(params)
//	s, err := rowpipe.Fuse(h, v) // bounded intermediate cache, no full frame
//
// # Buffers
//
// Buffers are a list of [Plane] values. A plane addresses row r at
// (r & Mask) * Stride, so ring buffers and full frames ([BufferMax])
// are read the same way.
//
// # Implementation Selection
//
// Richer implementations of a family are chosen once, at construction,
// by a [Selector] against a [Capabilities] descriptor detected lazily by
// [DetectCapabilities]. Absence of a specialised path is never an error:
// callers fall back to the portable implementation they supply.
//
// # Execution
//
// Stages run synchronously on caller-owned memory. An [Arena] holds the
// context and scratch bytes for one execution stream; a [Runner] drives
// stages over full frames, optionally in column tiles or parallel row
// bands.
//
// # Packages
//
//   - resize: horizontal and vertical resampling stages
//   - colorspace: colour matrix parameters and the matrix stage
//   - depth: pixel representation conversion and dithering
package rowpipe

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
