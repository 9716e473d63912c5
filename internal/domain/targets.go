package domain

import (
	"fmt"
	"math"
	"sort"
)

// SumTolerance is the accepted deviation of a target map's total from 100.
const SumTolerance = 0.1

// Targets maps every canonical group to a portfolio percentage.
// A valid map carries all 11 groups (zero entries included) and sums to
// 100 within SumTolerance.
type Targets map[Group]float64

// NewTargets returns a fully populated map with every group at zero.
func NewTargets() Targets {
	t := make(Targets, GroupCount)
	for _, g := range CanonicalGroups() {
		t[g] = 0
	}
	return t
}

// Clone returns an independent, fully populated copy.
func (t Targets) Clone() Targets {
	out := NewTargets()
	for g, v := range t {
		out[g] = v
	}
	return out
}

// Sum returns the total percentage across all groups.
func (t Targets) Sum() float64 {
	total := 0.0
	for _, v := range t {
		total += v
	}
	return total
}

// Normalize clamps negative entries to zero and rescales the map so the
// total is exactly 100, preserving ratios. Every canonical group is present
// in the result. A map with no positive mass normalizes to the all-stables
// safety preset rather than an arbitrary equal split.
func (t Targets) Normalize() Targets {
	out := NewTargets()
	total := 0.0
	for g, v := range t {
		if v > 0 {
			out[g] = v
			total += v
		}
	}
	if total <= 0 {
		out[GroupStablecoins] = 100
		return out
	}
	scale := 100 / total
	for g := range out {
		out[g] *= scale
	}
	return out
}

// Validate checks the top-level allocation invariant.
func (t Targets) Validate() error {
	for _, g := range CanonicalGroups() {
		if _, ok := t[g]; !ok {
			return fmt.Errorf("allocation missing group %s", g)
		}
		if t[g] < 0 {
			return fmt.Errorf("allocation for %s is negative (%.2f)", g, t[g])
		}
	}
	if sum := t.Sum(); math.Abs(sum-100) > SumTolerance {
		return fmt.Errorf("allocation sums to %.3f, expected 100 ±%.1f", sum, SumTolerance)
	}
	return nil
}

// Sorted returns group/value pairs ordered by descending weight, ties broken
// by canonical order. Used for stable display and change reporting.
func (t Targets) Sorted() []GroupWeight {
	pairs := make([]GroupWeight, 0, len(t))
	for _, g := range CanonicalGroups() {
		pairs = append(pairs, GroupWeight{Group: g, Pct: t[g]})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Pct > pairs[j].Pct
	})
	return pairs
}

// GroupWeight is a single group's share of the portfolio.
type GroupWeight struct {
	Group Group   `json:"group"`
	Pct   float64 `json:"pct"`
}
