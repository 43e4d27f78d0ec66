package explore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Threading steps the selected states of a round concurrently across a
// bounded worker pool. States are assumed independent: no technique may
// mutate a state another worker is processing. Results are folded back into
// the stash map serially, in the original selection order, so output is
// reproducible regardless of worker completion order.
type Threading struct {
	workers int
	logger  zerolog.Logger
}

// NewThreading creates a parallel stepping technique with the given worker
// count. A non-positive count defaults to 4.
func NewThreading(workers int, logger zerolog.Logger) *Threading {
	if workers <= 0 {
		workers = 4
	}
	return &Threading{
		workers: workers,
		logger:  logger.With().Str("component", "threading").Logger(),
	}
}

// Name implements Technique.
func (t *Threading) Name() string { return "threading" }

// Step fully handles the round: selection and merging stay on the calling
// goroutine; only the per-state advance is fanned out.
func (t *Threading) Step(ctx context.Context, mgr *Manager, stash string, opts *StepOptions, _ StepFunc) error {
	start := time.Now()
	selected := mgr.SelectStates(ctx, stash, opts)

	results := make([]map[string][]State, len(selected))
	errs := make([]error, len(selected))

	workers := t.workers
	if len(selected) < workers {
		workers = len(selected)
	}
	if workers > 0 {
		queue := make(chan int, len(selected))
		for i := range selected {
			queue <- i
		}
		close(queue)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range queue {
					if ctx.Err() != nil {
						return
					}
					results[i], errs[i] = mgr.StepOneState(ctx, selected[i], opts)
				}
			}()
		}
		wg.Wait()
	}

	// The merge is serialized and ordered by selection, not by completion.
	produced := 0
	for i, s := range selected {
		switch {
		case ctx.Err() != nil && results[i] == nil && errs[i] == nil:
			// Worker never reached this state; put it back untouched.
			mgr.MergeStashes(map[string][]State{stash: {s}})
		case errs[i] != nil:
			mgr.Quarantine(s, errs[i])
		default:
			for _, states := range results[i] {
				produced += len(states)
			}
			mgr.MergeStashes(results[i])
		}
	}

	mgr.finishRound(stash, len(selected), produced, start)
	t.logger.Debug().Int("selected", len(selected)).Int("workers", workers).
		Msg("Parallel round completed")
	return ctx.Err()
}
