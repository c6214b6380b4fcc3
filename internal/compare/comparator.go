package compare

import (
	"fmt"
	"math"
	"math/cmplx"
)

// LengthMismatchError means two runs produced different amounts of
// data for the same band. The sequences are never truncated to the
// shorter length.
type LengthMismatchError struct {
	CurrentLen  int
	BaselineLen int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("sample count mismatch: current has %d, baseline has %d", e.CurrentLen, e.BaselineLen)
}

// MaxAbsDiff computes the worst elementwise discrepancy between two
// equal-length sample sequences as the complex modulus of the
// difference. A NaN or infinite operand makes the result non-finite
// rather than being skipped, so a bad sample can never pass unnoticed.
func MaxAbsDiff(current, baseline []complex64) (float64, error) {
	if len(current) != len(baseline) {
		return 0, &LengthMismatchError{CurrentLen: len(current), BaselineLen: len(baseline)}
	}

	var max float64
	for i := range current {
		d := cmplx.Abs(complex128(current[i]) - complex128(baseline[i]))
		if math.IsNaN(d) || d > max {
			max = d
		}
	}
	return max, nil
}
