// Package parallel provides bounded fan-out helpers for the CPU backend.
package parallel

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of goroutines running at once.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
// Every f(i) has returned when For returns. A panic inside f is re-raised on
// the calling goroutine.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &chunkPanic{value: r}
				}
			}()
			for i := start; i < end; i++ {
				f(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err.(*chunkPanic).value)
	}
}

// chunkPanic carries a recovered panic out of a worker goroutine.
type chunkPanic struct {
	value any
}

func (p *chunkPanic) Error() string {
	return fmt.Sprintf("parallel: chunk panicked: %v", p.value)
}

// ForBatch iterates over a batch*rows grid, the pattern of NHWC kernels that
// split work per image row.
func ForBatch(batch, rows int, f func(b, r int), cfg Config) {
	For(batch*rows, func(k int) {
		f(k/rows, k%rows)
	}, cfg)
}
