package types

import "cogentcore.org/core/math32"

// CommandKind is the tag broadcast at the start of every protocol command.
//
// The set is closed; workers treat any other tag as a protocol desync.
type CommandKind int32

const (
	// CommandSetCamera updates the camera.
	CommandSetCamera CommandKind = iota + 1

	// CommandSetLights replaces the light set.
	CommandSetLights

	// CommandResize resizes the frame buffer. All ranks meet at a barrier afterwards.
	CommandResize

	// CommandRenderFrame renders one frame.
	CommandRenderFrame

	// CommandScreenshot captures the display frame buffer on the display rank.
	CommandScreenshot

	// CommandTerminate ends the worker loop.
	CommandTerminate

	// CommandSetTransferFunction updates the volume transfer function.
	CommandSetTransferFunction

	// CommandResetAccumulation clears progressive accumulation.
	CommandResetAccumulation
)

// Valid reports whether k is a known command tag.
func (k CommandKind) Valid() bool {
	return k >= CommandSetCamera && k <= CommandResetAccumulation
}

// String returns the string representation of the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandSetCamera:
		return "set_camera"
	case CommandSetLights:
		return "set_lights"
	case CommandResize:
		return "resize"
	case CommandRenderFrame:
		return "render_frame"
	case CommandScreenshot:
		return "screenshot"
	case CommandTerminate:
		return "terminate"
	case CommandSetTransferFunction:
		return "set_transfer_function"
	case CommandResetAccumulation:
		return "reset_accumulation"
	default:
		return "unknown"
	}
}

// Camera is the set-camera payload.
type Camera struct {
	Position  math32.Vector3
	Direction math32.Vector3
	Up        math32.Vector3

	// FovY is the vertical field of view in degrees.
	FovY float32
}

// Size is the resize payload.
type Size struct {
	Width  int32
	Height int32
}

// Pixels returns Width*Height, or 0 for a degenerate size.
func (s Size) Pixels() int {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}

	return int(s.Width) * int(s.Height)
}

// PointLight is a positional light.
type PointLight struct {
	Position math32.Vector3
	Power    math32.Vector3
}

// DirectionalLight is a light at infinity.
type DirectionalLight struct {
	Direction math32.Vector3
	Radiance  math32.Vector3
}

// Lights is the set-lights payload.
type Lights struct {
	Ambient     float32
	Points      []PointLight
	Directional []DirectionalLight
}

// Interval is a closed float32 range.
type Interval struct {
	Lo float32
	Hi float32
}

// TransferFunction is the set-transfer-function payload.
type TransferFunction struct {
	// Domain is the scalar range mapped onto ColorMap.
	Domain Interval

	// ColorMap holds RGBA entries in X, Y, Z, W order.
	ColorMap []math32.Vector4

	// BaseDensity scales opacity.
	BaseDensity float32
}
