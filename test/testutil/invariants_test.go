package testutil

import (
	"testing"
)

type ownerStub []int

func (o ownerStub) OwnedGroups() []int { return o }

func TestAssertGroupsPartitioned_Passes(t *testing.T) {
	owners := []ownerStub{{}, {0, 1}, {2, 3}}
	AssertGroupsPartitioned(t, owners, 4)
}
