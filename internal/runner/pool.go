package runner

import (
	"context"
	"sync"

	"github.com/sightlab/visionbench/internal/result"
)

// ScoreAll runs scoring attempts with at most maxWorkers in flight, returning
// results in input order. onScored, when set, is called as each attempt
// finishes; calls are serialized so the callback may print.
func ScoreAll(ctx context.Context, maxWorkers int, attempts []*SubmissionOpts, onScored func(*SubmissionOpts, *result.ScoreResult)) []*result.ScoreResult {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	results := make([]*result.ScoreResult, len(attempts))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, maxWorkers)

	for i, opts := range attempts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, opts *SubmissionOpts) {
			defer wg.Done()
			defer func() { <-sem }()
			res := ScoreSubmission(ctx, opts)
			results[i] = res
			if onScored != nil {
				mu.Lock()
				onScored(opts, res)
				mu.Unlock()
			}
		}(i, opts)
	}
	wg.Wait()
	return results
}
