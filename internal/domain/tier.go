package domain

import "strings"

// DetailTier names one level of the ordered detail hierarchy (coarse to fine).
type DetailTier string

const (
	TierMajor        DetailTier = "major"
	TierIntermediate DetailTier = "intermediate"
	TierMinor        DetailTier = "minor"
)

// Tiers is the configured tier ordering, coarsest first.
type Tiers []DetailTier

func DefaultTiers() Tiers {
	return Tiers{TierMajor, TierIntermediate, TierMinor}
}

func ParseTiers(raw []string) Tiers {
	out := make(Tiers, 0, len(raw))
	seen := map[DetailTier]bool{}
	for _, r := range raw {
		t := DetailTier(strings.TrimSpace(r))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Index returns the position of tier in the ordering, or -1.
func (ts Tiers) Index(tier DetailTier) int {
	for i, t := range ts {
		if t == tier {
			return i
		}
	}
	return -1
}

func (ts Tiers) Contains(tier DetailTier) bool { return ts.Index(tier) >= 0 }

func (ts Tiers) Coarsest() DetailTier {
	if len(ts) == 0 {
		return ""
	}
	return ts[0]
}

// Prefix returns every tier up to and including tier. Unknown tiers yield nil.
func (ts Tiers) Prefix(tier DetailTier) []DetailTier {
	i := ts.Index(tier)
	if i < 0 {
		return nil
	}
	out := make([]DetailTier, i+1)
	copy(out, ts[:i+1])
	return out
}

// Close turns an arbitrary selection into the prefix ending at its finest
// known member. Unknown members are ignored.
func (ts Tiers) Close(selected []DetailTier) []DetailTier {
	finest := -1
	for _, t := range selected {
		if i := ts.Index(t); i > finest {
			finest = i
		}
	}
	if finest < 0 {
		return nil
	}
	return ts.Prefix(ts[finest])
}

// Effective is the tier set a query filters on: an empty selection means the
// coarsest tier only.
func (ts Tiers) Effective(selected []DetailTier) []DetailTier {
	if closed := ts.Close(selected); len(closed) > 0 {
		return closed
	}
	if len(ts) == 0 {
		return nil
	}
	return []DetailTier{ts[0]}
}

// IsPrefix reports whether selected is empty or a prefix of the ordering.
func (ts Tiers) IsPrefix(selected []DetailTier) bool {
	if len(selected) > len(ts) {
		return false
	}
	for i, t := range selected {
		if ts[i] != t {
			return false
		}
	}
	return true
}

func (ts Tiers) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// SizeClass maps a raw tier property value to its rendering weight.
func (ts Tiers) SizeClass(value string) SizeClass {
	switch ts.Index(DetailTier(strings.TrimSpace(value))) {
	case 0:
		return SizeLarge
	case 1:
		return SizeMedium
	default:
		return SizeSmall
	}
}

func TierStrings(tiers []DetailTier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}
