package rowpipe

import (
	"errors"
	"testing"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"", TierAuto, false},
		{"auto", TierAuto, false},
		{"none", TierNone, false},
		{"baseline", TierNone, false},
		{"SIMD128", TierSIMD128, false},
		{" simd256 ", TierSIMD256, false},
		{"simd512", TierSIMD512, false},
		{"avx2", TierNone, true},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTier) {
				t.Errorf("ParseTier(%q) error = %v, want ErrInvalidTier", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTier(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}

	for tier := TierAuto; tier <= TierSIMD512; tier++ {
		if got, err := ParseTier(tier.String()); err != nil || got != tier {
			t.Errorf("ParseTier(%q) = %v, %v, want %v", tier.String(), got, err, tier)
		}
	}
}

func TestTierValidate(t *testing.T) {
	for _, tier := range []Tier{TierAuto, TierNone, TierSIMD128, TierSIMD256, TierSIMD512} {
		if err := tier.Validate(); err != nil {
			t.Errorf("%v.Validate() = %v", tier, err)
		}
	}
	for _, tier := range []Tier{-2, 4, 100} {
		if err := tier.Validate(); !errors.Is(err, ErrInvalidTier) {
			t.Errorf("Tier(%d).Validate() = %v, want ErrInvalidTier", int(tier), err)
		}
	}
	if got := Tier(9).String(); got != "Tier(9)" {
		t.Errorf("Tier(9).String() = %q", got)
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		upTo    Tier
		highest Tier
		has     []Tier
		hasNot  []Tier
	}{
		{TierNone, TierNone, []Tier{TierNone}, []Tier{TierSIMD128, TierSIMD256, TierSIMD512, TierAuto}},
		{TierSIMD128, TierSIMD128, []Tier{TierNone, TierSIMD128}, []Tier{TierSIMD256, TierSIMD512}},
		{TierSIMD256, TierSIMD256, []Tier{TierSIMD128, TierSIMD256}, []Tier{TierSIMD512}},
		{TierSIMD512, TierSIMD512, []Tier{TierSIMD128, TierSIMD256, TierSIMD512}, nil},
	}
	for _, tt := range tests {
		c := CapabilitiesUpTo(tt.upTo)
		if got := c.Highest(); got != tt.highest {
			t.Errorf("CapabilitiesUpTo(%v).Highest() = %v, want %v", tt.upTo, got, tt.highest)
		}
		for _, tier := range tt.has {
			if !c.Has(tier) {
				t.Errorf("CapabilitiesUpTo(%v).Has(%v) = false", tt.upTo, tier)
			}
		}
		for _, tier := range tt.hasNot {
			if c.Has(tier) {
				t.Errorf("CapabilitiesUpTo(%v).Has(%v) = true", tt.upTo, tier)
			}
		}
	}
}

func TestDetectCapabilitiesStable(t *testing.T) {
	a := DetectCapabilities()
	b := DetectCapabilities()
	if a != b {
		t.Errorf("DetectCapabilities() = %+v, then %+v", a, b)
	}
	// Tiers are cumulative.
	if a.SIMD512 && !a.SIMD256 || a.SIMD256 && !a.SIMD128 {
		t.Errorf("DetectCapabilities() = %+v is not cumulative", a)
	}
}
