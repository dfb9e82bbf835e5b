package scenepart

import "github.com/arloliu/scenepart/types"

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package; the
// aliases give users scenepart.State, scenepart.Logger and so on.
type (
	State            = types.State
	CommandKind      = types.CommandKind
	Camera           = types.Camera
	Size             = types.Size
	Lights           = types.Lights
	PointLight       = types.PointLight
	DirectionalLight = types.DirectionalLight
	Interval         = types.Interval
	TransferFunction = types.TransferFunction
)

// Re-export interfaces from the types package for convenience.
type (
	Content            = types.Content
	ContentSource      = types.ContentSource
	AssignmentStrategy = types.AssignmentStrategy
	ProcessGroup       = types.ProcessGroup
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)

// Re-export State constants.
const (
	StateInit       = types.StateInit
	StateLoading    = types.StateLoading
	StateServing    = types.StateServing
	StateTerminated = types.StateTerminated
	StateFailed     = types.StateFailed
)
