package match

import (
	"context"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// DefaultMaxflight bounds how many minions are evaluated in parallel
// during one pass when the caller does not say otherwise.
const DefaultMaxflight = 50

// Assemble evaluates the compiled expression against every snapshot in
// the fleet and returns the sorted ids of the minions that matched. An
// empty result is a valid outcome, not an error.
//
// Evaluation fans out over at most maxflight goroutines; snapshots and
// the compiled tree are immutable, so no locking happens on the hot
// path. Cancellation aborts the pass with ErrCancelled; a truncated set
// is never returned as if it were complete.
func (e *CompiledExpr) Assemble(ctx context.Context, fleet []*Snapshot, maxflight int) ([]string, error) {
	if maxflight <= 0 {
		maxflight = DefaultMaxflight
	}
	matched := mapset.NewSet()
	slots := make(chan struct{}, maxflight)
	var wg sync.WaitGroup
loop:
	for _, snap := range fleet {
		select {
		case <-ctx.Done():
			break loop
		case slots <- struct{}{}:
		}
		wg.Add(1)
		go func(s *Snapshot) {
			defer wg.Done()
			defer func() { <-slots }()
			if e.Matches(s) {
				matched.Add(s.ID)
			}
		}(snap)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	out := make([]string, 0, matched.Cardinality())
	for _, v := range matched.ToSlice() {
		out = append(out, v.(string))
	}
	sort.Strings(out)
	return out, nil
}
