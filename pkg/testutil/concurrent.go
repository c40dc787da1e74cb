package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "ponto/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	// Reasons counts domain rejections by reason, e.g. duplicate_submission.
	Reasons map[string]int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts
}

// RunConcurrent executes fn in parallel goroutines and collects results.
// Conflicts are domain errors with CodeConflict; every other failure is an error.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, conflicts atomic.Int32
	var mu sync.Mutex
	reasons := make(map[string]int32)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			if err == nil {
				successes.Add(1)
				return
			}
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				conflicts.Add(1)
			} else {
				errs.Add(1)
			}
			mu.Lock()
			reasons[dErrors.ReasonOf(err)]++
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Conflicts: conflicts.Load(),
		Reasons:   reasons,
	}
}
