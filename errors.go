package scenepart

import "github.com/arloliu/scenepart/types"

// Sentinel errors, re-exported from the types package so callers can match
// them with errors.Is without importing types.
var (
	ErrInvalidConfig              = types.ErrInvalidConfig
	ErrInvalidGroupCount          = types.ErrInvalidGroupCount
	ErrUnsupportedMapping         = types.ErrUnsupportedMapping
	ErrNoWorkersAvailable         = types.ErrNoWorkersAvailable
	ErrContentSourceRequired      = types.ErrContentSourceRequired
	ErrProcessGroupRequired       = types.ErrProcessGroupRequired
	ErrAssignmentStrategyRequired = types.ErrAssignmentStrategyRequired
	ErrAssignmentDiverged         = types.ErrAssignmentDiverged

	ErrProtocolDesync = types.ErrProtocolDesync
	ErrTerminated     = types.ErrTerminated
	ErrNotMaster      = types.ErrNotMaster

	ErrCollectiveFailed = types.ErrCollectiveFailed
	ErrInvalidRank      = types.ErrInvalidRank
	ErrGroupClosed      = types.ErrGroupClosed

	ErrMaterializeFailed = types.ErrMaterializeFailed
	ErrAlreadyStarted    = types.ErrAlreadyStarted
	ErrNotLoaded         = types.ErrNotLoaded
)
