// Package filters implements neighbourhood filters on float planes: rank
// filters, Gaussian derivatives, edge operators, ridge detectors, sharpening
// and noise.
//
// Filters split the output rows into bands and fill them concurrently. The
// number of bands is set once at start-up with SetWorkers.
package filters

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var workers atomic.Int32

func init() {
	workers.Store(int32(runtime.NumCPU()))
}

// SetWorkers bounds the goroutines used per filter call. n < 1 resets to
// the number of CPUs.
func SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	workers.Store(int32(n))
}

// forRows calls fn for every row in [0, height), spreading contiguous bands
// over the worker pool. fn must only write to its own row.
func forRows(height int, fn func(y int)) {
	n := int(workers.Load())
	if n > height {
		n = height
	}
	if n <= 1 {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}
	band := (height + n - 1) / n
	var g errgroup.Group
	g.SetLimit(n)
	for y0 := 0; y0 < height; y0 += band {
		y0 := y0
		y1 := min(y0+band, height)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				fn(y)
			}
			return nil
		})
	}
	_ = g.Wait()
}
