package integration_test

import (
	"testing"

	"github.com/arloliu/scenepart/test/testutil"
)

type owned []int

func (o owned) OwnedGroups() []int { return o }

// TestInvariants_Smoke ensures the invariant helper is wired and usable in integration tests.
func TestInvariants_Smoke(t *testing.T) {
	testutil.AssertGroupsPartitioned(t, []owned{{0, 1}, {2, 3}}, 4)
}
