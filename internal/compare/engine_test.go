package compare

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/radioastro/visdiff/internal/band"
	"github.com/radioastro/visdiff/internal/visfile"
	"github.com/radioastro/visdiff/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.FATAL, Output: io.Discard, ShowTime: false})
}

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// writeBand writes a band file in the simulator's native layout.
func writeBand(t *testing.T, dir string, index uint, samples []complex64) {
	t.Helper()
	buf := new(bytes.Buffer)
	for _, s := range samples {
		if err := binary.Write(buf, binary.LittleEndian, real(s)); err != nil {
			t.Fatalf("encoding sample: %v", err)
		}
		if err := binary.Write(buf, binary.LittleEndian, imag(s)); err != nil {
			t.Fatalf("encoding sample: %v", err)
		}
	}
	path := filepath.Join(dir, band.FileName(index))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestRunIdenticalDirectories(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	samples := []complex64{complex(1.5, -2.0), complex(0.25, 8.0), complex(-3.0, 0)}
	for index := uint(1); index <= 4; index++ {
		writeBand(t, current, index, samples)
		writeBand(t, baseline, index, samples)
	}

	engine := newTestEngine(WithWorkers(4))
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Pairs) != 4 {
		t.Fatalf("expected 4 pairs, got %d", len(report.Pairs))
	}
	for i, p := range report.Pairs {
		if p.Band != uint(i+1) {
			t.Errorf("pairs not ascending: pair %d is band %d", i, p.Band)
		}
		if !p.OK() {
			t.Errorf("band %02d failed: %v", p.Band, p.Err)
		}
		if p.MaxDiff != 0 {
			t.Errorf("band %02d max = %v, want exactly 0", p.Band, p.MaxDiff)
		}
		if p.Samples != len(samples) {
			t.Errorf("band %02d samples = %d, want %d", p.Band, p.Samples, len(samples))
		}
	}

	max, ok := report.MaxDiff()
	if !ok || max != 0 {
		t.Errorf("overall max = %v, %v; want 0, true", max, ok)
	}
	if !report.WithinTolerance() {
		t.Error("identical directories should pass")
	}
}

func TestRunMixedDirectories(t *testing.T) {
	// current has bands 01 and 02, baseline has 01 and 03: only band
	// 01 is comparable, the others are one-sided warnings.
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{complex(0.0005, 0)})
	writeBand(t, current, 2, []complex64{complex(1.0, 0)})
	writeBand(t, baseline, 1, []complex64{complex(0, 0)})
	writeBand(t, baseline, 3, []complex64{complex(2.0, 0)})

	engine := newTestEngine(WithTolerance(0.001))
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Pairs) != 1 || report.Pairs[0].Band != 1 {
		t.Fatalf("expected exactly band 01 compared, got %+v", report.Pairs)
	}
	if len(report.MissingInBaseline) != 1 || report.MissingInBaseline[0] != 2 {
		t.Errorf("MissingInBaseline = %v, want [2]", report.MissingInBaseline)
	}
	if len(report.MissingInCurrent) != 1 || report.MissingInCurrent[0] != 3 {
		t.Errorf("MissingInCurrent = %v, want [3]", report.MissingInCurrent)
	}
	if !report.WithinTolerance() {
		max, _ := report.MaxDiff()
		t.Errorf("expected pass with max %v and tolerance 0.001", max)
	}
}

func TestRunToleranceExceeded(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{complex(0.01, 0)})
	writeBand(t, baseline, 1, []complex64{complex(0, 0)})

	engine := newTestEngine(WithTolerance(0.001))
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.WithinTolerance() {
		t.Error("expected verdict failure")
	}
	if report.Pairs[0].Band != 1 {
		t.Errorf("offending band = %d, want 1", report.Pairs[0].Band)
	}
	if report.Pairs[0].MaxDiff <= 0.001 {
		t.Errorf("measured value %v should exceed the tolerance", report.Pairs[0].MaxDiff)
	}
}

func TestRunToleranceBoundaryInclusive(t *testing.T) {
	// 2.0 and 1.5 are exactly representable: the maximum difference is
	// exactly the tolerance, which passes.
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{complex(2.0, 0)})
	writeBand(t, baseline, 1, []complex64{complex(1.5, 0)})

	engine := newTestEngine(WithTolerance(0.5))
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if max, _ := report.MaxDiff(); max != 0.5 {
		t.Fatalf("max = %v, want exactly 0.5", max)
	}
	if !report.WithinTolerance() {
		t.Error("a maximum equal to the tolerance must pass")
	}

	engine = newTestEngine(WithTolerance(0.25))
	report, err = engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.WithinTolerance() {
		t.Error("a maximum above the tolerance must fail")
	}
}

func TestRunNonFiniteSampleFails(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	nan := float32(math.NaN())
	writeBand(t, current, 1, []complex64{complex(nan, 0), complex(1.0, 0)})
	writeBand(t, baseline, 1, []complex64{complex(0, 0), complex(1.0, 0)})

	// Even a huge tolerance cannot make a non-finite result pass.
	engine := newTestEngine(WithTolerance(math.MaxFloat64))
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	max, ok := report.MaxDiff()
	if !ok || !math.IsNaN(max) {
		t.Errorf("overall max = %v, %v; want NaN, true", max, ok)
	}
	if report.WithinTolerance() {
		t.Error("non-finite comparison must never pass")
	}
}

func TestRunMalformedFileIsIsolated(t *testing.T) {
	// Band 01's baseline file is 3 bytes short of a whole record; band
	// 02 is fine and must still be compared.
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{1, 2})
	writeBand(t, current, 2, []complex64{3, 4})
	writeBand(t, baseline, 1, []complex64{1, 2})
	writeBand(t, baseline, 2, []complex64{3, 4})

	brokenPath := filepath.Join(baseline, band.FileName(1))
	raw, err := os.ReadFile(brokenPath)
	if err != nil {
		t.Fatalf("rereading band file: %v", err)
	}
	if err := os.WriteFile(brokenPath, raw[:len(raw)-3], 0o644); err != nil {
		t.Fatalf("truncating band file: %v", err)
	}

	engine := newTestEngine()
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(report.Pairs))
	}

	var malformed *visfile.MalformedFileError
	if !errors.As(report.Pairs[0].Err, &malformed) {
		t.Errorf("band 01: expected MalformedFileError, got %v", report.Pairs[0].Err)
	}
	if !report.Pairs[1].OK() {
		t.Errorf("band 02 should still be compared, got %v", report.Pairs[1].Err)
	}
	if report.WithinTolerance() {
		t.Error("partial success is not success")
	}
}

func TestRunAllPairsFailed(t *testing.T) {
	// The only comparable band is malformed: the report carries the
	// failure and there is no comparable data at all.
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{1, 2})
	if err := os.WriteFile(filepath.Join(baseline, band.FileName(1)), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("writing malformed band file: %v", err)
	}

	engine := newTestEngine()
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, ok := report.MaxDiff(); ok {
		t.Error("no pair succeeded, so there must be no overall maximum")
	}
	if report.WithinTolerance() {
		t.Error("expected verdict failure")
	}
}

func TestRunLengthMismatch(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{1, 2, 3})
	writeBand(t, baseline, 1, []complex64{1, 2})

	engine := newTestEngine()
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var mismatch *LengthMismatchError
	if !errors.As(report.Pairs[0].Err, &mismatch) {
		t.Fatalf("expected LengthMismatchError, got %v", report.Pairs[0].Err)
	}
	if report.WithinTolerance() {
		t.Error("expected verdict failure")
	}
}

func TestRunNoComparableBands(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{1})
	writeBand(t, baseline, 2, []complex64{1})

	engine := newTestEngine()
	_, err := engine.Run(context.Background(), current, baseline)
	var noBands *NoComparableBandsError
	if !errors.As(err, &noBands) {
		t.Fatalf("expected NoComparableBandsError, got %T: %v", err, err)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	current := t.TempDir()
	writeBand(t, current, 1, []complex64{1})

	engine := newTestEngine()
	_, err := engine.Run(context.Background(), current, filepath.Join(current, "baseline"))
	var accessErr *band.DirectoryAccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected DirectoryAccessError, got %T: %v", err, err)
	}
}

func TestRunFailOnMissing(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	samples := []complex64{complex(1.0, 1.0)}
	writeBand(t, current, 1, samples)
	writeBand(t, current, 2, samples)
	writeBand(t, baseline, 1, samples)

	// One-sided bands warn by default.
	engine := newTestEngine()
	report, err := engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.WithinTolerance() {
		t.Error("one-sided bands should not fail the verdict by default")
	}

	engine = newTestEngine(WithFailOnMissing(true))
	report, err = engine.Run(context.Background(), current, baseline)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.WithinTolerance() {
		t.Error("one-sided bands should fail the verdict with WithFailOnMissing")
	}
}

func TestRunCanceled(t *testing.T) {
	current := t.TempDir()
	baseline := t.TempDir()
	writeBand(t, current, 1, []complex64{1})
	writeBand(t, baseline, 1, []complex64{1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine()
	_, err := engine.Run(ctx, current, baseline)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
