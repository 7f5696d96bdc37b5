package gpso

import "golang.org/x/exp/constraints"

// Domain is a hyper-rectangular search space [Lower, Upper] ⊂ ℝ^d. Every
// coordinate must satisfy Upper[i] > Lower[i].
//
// Usage example:
//
//	domain := gpso.Domain{
//	    Lower: []float64{-1, -1},
//	    Upper: []float64{1, 1},
//	}
type Domain struct {
	// Lower holds the inclusive lower bound of each dimension.
	Lower []float64

	// Upper holds the inclusive upper bound of each dimension.
	Upper []float64
}

// Dim returns the dimensionality d of the domain.
func (d Domain) Dim() int {
	return len(d.Lower)
}

// validate checks the domain's box-rectangle invariants: non-empty,
// matching lengths, and Upper[i] > Lower[i] on every axis.
func (d Domain) validate() error {
	if len(d.Lower) == 0 || len(d.Upper) == 0 {
		return newError(ErrConfig, "Domain.validate", errValueError("domain must not be empty"))
	}
	if len(d.Lower) != len(d.Upper) {
		return newError(ErrConfig, "Domain.validate", errValueError("lower and upper bounds must have the same length"))
	}
	for i := range d.Lower {
		if !(d.Upper[i] > d.Lower[i]) {
			return newError(ErrConfig, "Domain.validate", errValueError("upper bound must exceed lower bound on every axis"))
		}
	}
	return nil
}

// delta returns Upper[i] - Lower[i] for every axis.
func (d Domain) delta() []float64 {
	out := make([]float64, len(d.Lower))
	for i := range out {
		out[i] = d.Upper[i] - d.Lower[i]
	}
	return out
}

// midpoint returns the domain's geometric center in original coordinates.
func (d Domain) midpoint() []float64 {
	out := make([]float64, len(d.Lower))
	for i := range out {
		out[i] = (d.Lower[i] + d.Upper[i]) / 2
	}
	return out
}

// clamp restricts x to [lo, hi].
func clamp[T constraints.Float](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

type errValueError string

func (e errValueError) Error() string { return string(e) }
