package compare

import (
	"github.com/radioastro/visdiff/internal/storage"
	"github.com/radioastro/visdiff/pkg/logger"
)

// DefaultTolerance is the largest difference that still passes when
// no tolerance is configured.
const DefaultTolerance = 0.001

type Option func(*Engine)

// WithTolerance sets the pass/fail bound. The bound is inclusive: a
// maximum difference equal to the tolerance passes.
func WithTolerance(tolerance float64) Option {
	return func(e *Engine) {
		e.tolerance = tolerance
	}
}

// WithWorkers sets how many band pairs are compared concurrently.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithFailOnMissing makes one-sided bands (present in only one
// directory) fail the verdict instead of only being warned about.
func WithFailOnMissing(fail bool) Option {
	return func(e *Engine) {
		e.failOnMissing = fail
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithHistory persists every finished report to the given store.
func WithHistory(client *storage.Client) Option {
	return func(e *Engine) {
		e.history = client
	}
}
