package rowpipe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

// Tier is a hardware capability tier. Tiers form a strict total order from
// TierNone (portable code only) to the richest vector width.
type Tier int

const (
	// TierAuto selects the richest implementation the hardware supports.
	TierAuto Tier = -1

	// TierNone permits portable implementations only.
	TierNone Tier = 0

	// TierSIMD128 covers 128-bit vector units (x86 SSE2, arm64 ASIMD).
	TierSIMD128 Tier = 1

	// TierSIMD256 covers 256-bit vector units with FMA (x86 AVX2).
	TierSIMD256 Tier = 2

	// TierSIMD512 covers 512-bit vector units (x86 AVX-512F).
	TierSIMD512 Tier = 3

	tierMax = TierSIMD512
)

// IsValid returns true for TierAuto and every defined tier.
func (t Tier) IsValid() bool {
	return t >= TierAuto && t <= tierMax
}

// Validate returns ErrInvalidTier for unknown tiers.
func (t Tier) Validate() error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidTier, int(t))
	}
	return nil
}

// String returns the textual form accepted by ParseTier.
func (t Tier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierNone:
		return "none"
	case TierSIMD128:
		return "simd128"
	case TierSIMD256:
		return "simd256"
	case TierSIMD512:
		return "simd512"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ParseTier parses a tier name as produced by Tier.String.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return TierAuto, nil
	case "none", "baseline":
		return TierNone, nil
	case "simd128":
		return TierSIMD128, nil
	case "simd256":
		return TierSIMD256, nil
	case "simd512":
		return TierSIMD512, nil
	}
	return TierNone, fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// Capabilities is an immutable description of detected hardware features.
type Capabilities struct {
	SIMD128 bool
	SIMD256 bool
	SIMD512 bool
}

// Has reports whether the hardware supports tier t. TierNone is always
// supported.
func (c Capabilities) Has(t Tier) bool {
	switch t {
	case TierNone:
		return true
	case TierSIMD128:
		return c.SIMD128
	case TierSIMD256:
		return c.SIMD256
	case TierSIMD512:
		return c.SIMD512
	default:
		return false
	}
}

// Highest returns the richest tier the hardware supports.
func (c Capabilities) Highest() Tier {
	for t := tierMax; t > TierNone; t-- {
		if c.Has(t) {
			return t
		}
	}
	return TierNone
}

// CapabilitiesUpTo returns a descriptor with every tier up to t set.
// Useful for tests and for capping detection from configuration.
func CapabilitiesUpTo(t Tier) Capabilities {
	return Capabilities{
		SIMD128: t >= TierSIMD128,
		SIMD256: t >= TierSIMD256,
		SIMD512: t >= TierSIMD512,
	}
}

// DetectCapabilities returns the process-wide capability descriptor. It is
// computed once, on first use.
var DetectCapabilities = sync.OnceValue(detectCapabilities)

func detectCapabilities() Capabilities {
	var c Capabilities
	switch {
	case cpu.X86.HasSSE2:
		c.SIMD128 = true
		c.SIMD256 = cpu.X86.HasAVX2 && cpu.X86.HasFMA
		c.SIMD512 = c.SIMD256 && cpu.X86.HasAVX512F
	case cpu.ARM64.HasASIMD:
		c.SIMD128 = true
	}
	Logger().Debug("rowpipe: detected capabilities",
		"cpu", cpuid.CPU.BrandName,
		"logical_cores", cpuid.CPU.LogicalCores,
		"simd128", c.SIMD128, "simd256", c.SIMD256, "simd512", c.SIMD512)
	return c
}
