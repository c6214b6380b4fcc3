package model

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Summary renders the report for console output.
func (r *Report) Summary() string {
	var b strings.Builder

	var totalSamples int64
	compared := 0
	for _, p := range r.Pairs {
		if !p.OK() {
			continue
		}
		compared++
		totalSamples += int64(p.Samples)
	}

	fmt.Fprintf(&b, "Compared %d of %d band(s), %s sample(s) total\n",
		compared, len(r.Pairs), humanize.Comma(totalSamples))

	for _, p := range r.Pairs {
		if p.OK() {
			fmt.Fprintf(&b, "  band %02d: max difference %v (%s samples)\n",
				p.Band, p.MaxDiff, humanize.Comma(int64(p.Samples)))
		} else {
			fmt.Fprintf(&b, "  band %02d: FAILED: %v\n", p.Band, p.Err)
		}
	}

	if len(r.MissingInCurrent) > 0 {
		fmt.Fprintf(&b, "Bands only in baseline (not compared): %s\n", formatBands(r.MissingInCurrent))
	}
	if len(r.MissingInBaseline) > 0 {
		fmt.Fprintf(&b, "Bands only in current (not compared): %s\n", formatBands(r.MissingInBaseline))
	}

	if max, ok := r.MaxDiff(); ok {
		fmt.Fprintf(&b, "Maximum difference: %v (tolerance %v)\n", max, r.Tolerance)
	} else {
		b.WriteString("No comparable data\n")
	}

	if r.WithinTolerance() {
		b.WriteString("PASS")
	} else {
		b.WriteString("FAIL")
	}
	return b.String()
}

func formatBands(bands []uint) string {
	parts := make([]string, len(bands))
	for i, band := range bands {
		parts[i] = fmt.Sprintf("%02d", band)
	}
	return strings.Join(parts, ", ")
}
