package model

import "math"

// PairResult is the outcome of comparing one band present in both
// directories. When Err is non-nil the pair could not be compared and
// MaxDiff/Samples are meaningless.
type PairResult struct {
	Band    uint
	Samples int
	MaxDiff float64
	Err     error
}

// OK reports whether the pair was compared successfully.
func (p PairResult) OK() bool {
	return p.Err == nil
}

// Report aggregates every pair outcome plus the bands that could not
// be paired at all.
type Report struct {
	// Pairs holds one entry per band found in both directories,
	// ascending by band index.
	Pairs []PairResult

	// MissingInCurrent lists bands present only in the baseline
	// directory; MissingInBaseline lists bands present only in the
	// current directory. Both ascending.
	MissingInCurrent  []uint
	MissingInBaseline []uint

	Tolerance     float64
	FailOnMissing bool
}

// MaxDiff returns the largest difference over all successfully
// compared pairs. The second return is false when no pair succeeded,
// which is distinct from a maximum of zero.
func (r *Report) MaxDiff() (float64, bool) {
	var max float64
	found := false
	for _, p := range r.Pairs {
		if !p.OK() {
			continue
		}
		if !found || math.IsNaN(p.MaxDiff) || p.MaxDiff > max {
			max = p.MaxDiff
		}
		found = true
	}
	return max, found
}

// FailedPairs returns the pairs that could not be compared.
func (r *Report) FailedPairs() []PairResult {
	var failed []PairResult
	for _, p := range r.Pairs {
		if !p.OK() {
			failed = append(failed, p)
		}
	}
	return failed
}

// WithinTolerance is the overall verdict: every pair compared
// successfully and the largest difference is finite and at most the
// tolerance. Equality with the tolerance passes. A report with no
// successful pair never passes, and with FailOnMissing set neither
// does one with one-sided bands.
func (r *Report) WithinTolerance() bool {
	if len(r.FailedPairs()) > 0 {
		return false
	}
	max, ok := r.MaxDiff()
	if !ok {
		return false
	}
	if math.IsNaN(max) || math.IsInf(max, 0) {
		return false
	}
	if r.FailOnMissing && (len(r.MissingInCurrent) > 0 || len(r.MissingInBaseline) > 0) {
		return false
	}
	return max <= r.Tolerance
}
