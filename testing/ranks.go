package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/scenepart/types"
)

// DefaultRankTimeout bounds RunRanks so a deadlocked collective fails the test
// instead of hanging it.
const DefaultRankTimeout = 10 * time.Second

// RunRanks runs fn once per process group concurrently and returns the error
// of each rank, indexed like groups.
func RunRanks[G types.ProcessGroup](t testing.TB, groups []G, fn func(ctx context.Context, pg G) error) []error {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), DefaultRankTimeout)
	defer cancel()

	errs := make([]error, len(groups))
	var wg sync.WaitGroup
	for i, pg := range groups {
		wg.Go(func() {
			errs[i] = fn(ctx, pg)
		})
	}
	wg.Wait()

	return errs
}

// RequireNoRankErrors fails the test if any rank returned an error.
func RequireNoRankErrors(t testing.TB, errs []error) {
	t.Helper()

	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}
}
