package types

import (
	"errors"
)

// Sentinel errors for the scenepart library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).
//
// Every error in this file is fatal to the process that observes it. Nothing in
// the load phase or the command protocol is retried.

// Configuration errors - reported before any collective communication begins.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidGroupCount is returned when a non-positive data group count is requested.
	ErrInvalidGroupCount = errors.New("data group count must be positive")

	// ErrUnsupportedMapping is returned when the group count is not an exact
	// multiple of the active worker count and partial mapping is not allowed.
	ErrUnsupportedMapping = errors.New("group count is not a multiple of the worker count")

	// ErrNoWorkersAvailable is returned when no rank can own data groups.
	ErrNoWorkersAvailable = errors.New("no active workers available")

	// ErrContentSourceRequired is returned when the content source is nil.
	ErrContentSourceRequired = errors.New("content source is required")

	// ErrProcessGroupRequired is returned when the process group is nil.
	ErrProcessGroupRequired = errors.New("process group is required")

	// ErrAssignmentStrategyRequired is returned when assignment strategy is nil.
	ErrAssignmentStrategyRequired = errors.New("assignment strategy is required")

	// ErrAssignmentDiverged is returned when ranks computed different assignments
	// from what should have been identical inputs.
	ErrAssignmentDiverged = errors.New("assignment diverged across ranks")
)

// Protocol errors.
var (
	// ErrProtocolDesync is returned when the end-of-message sentinel does not match
	// the expected counter or an unknown command tag is received.
	ErrProtocolDesync = errors.New("protocol desynchronized")

	// ErrTerminated is returned when a command is issued after terminate.
	ErrTerminated = errors.New("protocol already terminated")

	// ErrNotMaster is returned when a master-only operation is attempted on a worker rank.
	ErrNotMaster = errors.New("not the master rank")
)

// Collective communication errors.
var (
	// ErrCollectiveFailed is returned when a collective primitive fails.
	// The whole process group is unusable after this error.
	ErrCollectiveFailed = errors.New("collective operation failed")

	// ErrInvalidRank is returned when a rank is outside [0, size).
	ErrInvalidRank = errors.New("invalid rank")

	// ErrGroupClosed is returned when the process group or its transport is closed.
	ErrGroupClosed = errors.New("process group closed")
)

// Content errors.
var (
	// ErrMaterializeFailed is returned when a content descriptor fails to load.
	ErrMaterializeFailed = errors.New("content materialization failed")

	// ErrAlreadyStarted is returned when Load or Serve is called twice.
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNotLoaded is returned when an operation requires a completed load phase.
	ErrNotLoaded = errors.New("node not loaded")
)
