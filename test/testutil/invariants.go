package testutil

import (
	"testing"
)

// GroupOwner is the subset of Node methods the invariant helpers read.
type GroupOwner interface {
	OwnedGroups() []int
}

// AssertGroupsPartitioned verifies that every data group in [0, groups) is
// owned by exactly one rank and that no rank owns a group outside the range.
//
// Parameters:
//   - t: testing handle
//   - owners: one entry per rank; passive ranks own nothing
//   - groups: expected group count
func AssertGroupsPartitioned[O GroupOwner](t testing.TB, owners []O, groups int) {
	t.Helper()

	seen := make(map[int]int, groups)
	for rank, o := range owners {
		for _, id := range o.OwnedGroups() {
			if id < 0 || id >= groups {
				t.Fatalf("rank %d owns group %d outside [0, %d)", rank, id, groups)
			}
			if prev, ok := seen[id]; ok {
				t.Fatalf("group %d owned by rank %d and rank %d", id, prev, rank)
			}
			seen[id] = rank
		}
	}

	if len(seen) != groups {
		t.Fatalf("%d of %d groups owned", len(seen), groups)
	}
}
