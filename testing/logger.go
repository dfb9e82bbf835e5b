package testing

import (
	"strconv"
	"testing"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/types"
)

// NewTestLogger returns a logger that writes through t.Logf.
func NewTestLogger(t testing.TB) types.Logger {
	return logging.NewTest(t)
}

// NewRankLogger returns a test logger whose messages are prefixed with the rank.
func NewRankLogger(t testing.TB, rank int) types.Logger {
	return logging.NewTest(t).Named("rank" + strconv.Itoa(rank))
}
