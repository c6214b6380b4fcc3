package compare

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/radioastro/visdiff/internal/band"
	"github.com/radioastro/visdiff/internal/model"
	"github.com/radioastro/visdiff/internal/storage"
	"github.com/radioastro/visdiff/internal/visfile"
	"github.com/radioastro/visdiff/pkg/logger"
)

// NoComparableBandsError means the two directories share no band
// index, so there is nothing to verify.
type NoComparableBandsError struct {
	CurrentDir  string
	BaselineDir string
}

func (e *NoComparableBandsError) Error() string {
	return fmt.Sprintf("no band files common to %s and %s", e.CurrentDir, e.BaselineDir)
}

// Engine pairs up band files from a current and a baseline directory
// and reduces them to a single worst-case difference.
type Engine struct {
	tolerance     float64
	workers       int
	failOnMissing bool
	log           *logger.Logger
	history       *storage.Client
}

func New(opts ...Option) *Engine {
	e := &Engine{
		tolerance: DefaultTolerance,
		workers:   runtime.NumCPU(),
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run compares every band present in both directories and returns the
// aggregated report. A failure on a single pair (malformed, truncated
// or mismatched file) is recorded in that pair's result and does not
// abort the remaining pairs; only setup-level problems (unreadable
// directory, duplicate band, empty intersection, cancellation) return
// an error.
func (e *Engine) Run(ctx context.Context, currentDir, baselineDir string) (*model.Report, error) {
	current, err := band.Locate(currentDir)
	if err != nil {
		return nil, err
	}
	baseline, err := band.Locate(baselineDir)
	if err != nil {
		return nil, err
	}

	common, onlyCurrent, onlyBaseline := partition(current, baseline)
	if len(common) == 0 {
		return nil, &NoComparableBandsError{CurrentDir: currentDir, BaselineDir: baselineDir}
	}

	for _, idx := range onlyBaseline {
		e.log.Warnf("band %02d is present only in %s", idx, baselineDir)
	}
	for _, idx := range onlyCurrent {
		e.log.Warnf("band %02d is present only in %s", idx, currentDir)
	}

	report := &model.Report{
		Pairs:             make([]model.PairResult, len(common)),
		MissingInCurrent:  onlyBaseline,
		MissingInBaseline: onlyCurrent,
		Tolerance:         e.tolerance,
		FailOnMissing:     e.failOnMissing,
	}

	// Each worker writes only its own slot, so the merge is just
	// g.Wait. Cancellation is honored between pairs; a pair already
	// running reads to completion so it cannot report a spurious
	// truncation.
	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	canceled := false
	for i, idx := range common {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		i, idx := i, idx
		g.Go(func() error {
			report.Pairs[i] = e.comparePair(idx, current[idx], baseline[idx])
			return nil
		})
	}
	g.Wait()

	if canceled {
		return nil, ctx.Err()
	}

	if max, ok := report.MaxDiff(); ok {
		e.log.Infof("maximum difference: %v", max)
	}

	if e.history != nil {
		if id, err := e.history.SaveRun(report, currentDir, baselineDir); err != nil {
			e.log.Warnf("could not record run history: %v", err)
		} else {
			e.log.Debugf("recorded run %s", id)
		}
	}

	return report, nil
}

func (e *Engine) comparePair(idx uint, currentPath, baselinePath string) model.PairResult {
	e.log.Infof("checking band %02d ...", idx)
	res := model.PairResult{Band: idx}

	currentData, err := visfile.Read(currentPath)
	if err != nil {
		res.Err = fmt.Errorf("band %02d: %w", idx, err)
		return res
	}
	baselineData, err := visfile.Read(baselinePath)
	if err != nil {
		res.Err = fmt.Errorf("band %02d: %w", idx, err)
		return res
	}

	maxDiff, err := MaxAbsDiff(currentData, baselineData)
	if err != nil {
		res.Err = fmt.Errorf("band %02d: %w", idx, err)
		return res
	}

	res.Samples = len(currentData)
	res.MaxDiff = maxDiff
	e.log.Infof("biggest difference for band %02d: %v", idx, maxDiff)
	return res
}

// partition splits the two band sets into the ascending intersection
// and the two ascending one-sided remainders.
func partition(current, baseline map[uint]string) (common, onlyCurrent, onlyBaseline []uint) {
	for idx := range current {
		if _, ok := baseline[idx]; ok {
			common = append(common, idx)
		} else {
			onlyCurrent = append(onlyCurrent, idx)
		}
	}
	for idx := range baseline {
		if _, ok := current[idx]; !ok {
			onlyBaseline = append(onlyBaseline, idx)
		}
	}
	sortBands(common)
	sortBands(onlyCurrent)
	sortBands(onlyBaseline)
	return common, onlyCurrent, onlyBaseline
}

func sortBands(bands []uint) {
	sort.Slice(bands, func(i, j int) bool { return bands[i] < bands[j] })
}
