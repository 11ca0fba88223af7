package rowpipe

import (
	"slices"
)

// Candidate is one implementation of an operation family.
type Candidate[A any] struct {
	// Tier is the capability the implementation requires.
	Tier Tier

	// Name identifies the implementation.
	Name string

	// Build constructs the stage, or returns nil when the implementation
	// does not cover these arguments (for example an unsupported pixel
	// type). Build must not fail otherwise.
	Build func(A) Stage
}

// Selector picks the richest qualifying implementation of one operation
// family. Portable implementations are not registered: when Select
// reports false the caller uses its own baseline.
type Selector[A any] struct {
	family     string
	caps       Capabilities
	candidates []Candidate[A]
}

// NewSelector creates a selector for a family over the given hardware
// description. Candidates with a tier outside (TierNone, TierSIMD512] are
// ignored.
func NewSelector[A any](family string, caps Capabilities, candidates ...Candidate[A]) *Selector[A] {
	cs := make([]Candidate[A], 0, len(candidates))
	for _, c := range candidates {
		if c.Tier > TierNone && c.Tier <= tierMax && c.Build != nil {
			cs = append(cs, c)
		}
	}
	// Richest first; registration order breaks ties.
	slices.SortStableFunc(cs, func(a, b Candidate[A]) int { return int(b.Tier) - int(a.Tier) })
	return &Selector[A]{family: family, caps: caps, candidates: cs}
}

// Capabilities returns the hardware description the selector uses.
func (s *Selector[A]) Capabilities() Capabilities { return s.caps }

// Select returns the richest implementation whose tier the hardware has
// and, unless req is TierAuto, whose tier does not exceed req. It reports
// false when none qualifies, including for invalid tiers; the name is
// empty in that case.
func (s *Selector[A]) Select(req Tier, args A) (Stage, string, bool) {
	if !req.IsValid() {
		return nil, "", false
	}
	for _, c := range s.candidates {
		if !s.caps.Has(c.Tier) {
			continue
		}
		if req != TierAuto && c.Tier > req {
			continue
		}
		if st := c.Build(args); st != nil {
			Logger().Debug("rowpipe: selected implementation",
				"family", s.family, "impl", c.Name, "tier", c.Tier.String(), "requested", req.String())
			return st, c.Name, true
		}
	}
	return nil, "", false
}

// SelectOr is Select with a portable fallback. The fallback is logged at
// Warn level when a richer tier was explicitly requested.
func (s *Selector[A]) SelectOr(req Tier, args A, baseline func(A) (Stage, error)) (Stage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if st, _, ok := s.Select(req, args); ok {
		return st, nil
	}
	if req > TierNone {
		Logger().Warn("rowpipe: no accelerated implementation, using baseline",
			"family", s.family, "requested", req.String(), "highest", s.caps.Highest().String())
	}
	return baseline(args)
}
