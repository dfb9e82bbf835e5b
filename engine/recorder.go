package engine

import (
	"sync"

	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

// Call is one recorded engine call.
type Call struct {
	Method string
	Group  int
	Name   string
	Handle scene.Handle
}

// Recorder is an Engine that records calls and keeps the latest state.
//
// Safe for concurrent use so tests can inspect it while a worker loop runs.
type Recorder struct {
	mu sync.Mutex

	next      scene.Handle
	calls     []Call
	camera    types.Camera
	lights    types.Lights
	tf        types.TransferFunction
	size      types.Size
	host      []uint32
	frames    int
	terminate bool

	// Fill, when non-zero, is written to every host pixel on RenderFrame.
	Fill uint32
}

var _ Engine = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) handle() scene.Handle {
	r.next++
	return r.next
}

// NewMaterial implements Engine.
func (r *Recorder) NewMaterial(group int, m scene.Material) (scene.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.handle()
	r.record(Call{Method: "NewMaterial", Group: group, Name: m.Key, Handle: h})

	return h, nil
}

// NewGeometry implements Engine.
func (r *Recorder) NewGeometry(group int, g scene.Geometry, _ scene.Handle) (scene.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.handle()
	r.record(Call{Method: "NewGeometry", Group: group, Name: g.GeometryName(), Handle: h})

	return h, nil
}

// NewVolume implements Engine.
func (r *Recorder) NewVolume(group int, f scene.Field) (scene.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.handle()
	r.record(Call{Method: "NewVolume", Group: group, Name: f.FieldName(), Handle: h})

	return h, nil
}

// AddInstance implements Engine.
func (r *Recorder) AddInstance(group int, object scene.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Call{Method: "AddInstance", Group: group, Handle: object})

	return nil
}

// SetCamera implements Engine.
func (r *Recorder) SetCamera(camera types.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.camera = camera
	r.record(Call{Method: "SetCamera"})

	return nil
}

// SetLights implements Engine.
func (r *Recorder) SetLights(lights types.Lights) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lights = lights
	r.record(Call{Method: "SetLights"})

	return nil
}

// SetTransferFunction implements Engine.
func (r *Recorder) SetTransferFunction(tf types.TransferFunction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tf = tf
	r.record(Call{Method: "SetTransferFunction"})

	return nil
}

// Resize implements Engine.
func (r *Recorder) Resize(size types.Size, host []uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.size = size
	r.host = host
	r.record(Call{Method: "Resize"})

	return nil
}

// RenderFrame implements Engine.
func (r *Recorder) RenderFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	if r.Fill != 0 {
		for i := range r.host {
			r.host[i] = r.Fill
		}
	}
	r.record(Call{Method: "RenderFrame"})

	return nil
}

// ResetAccumulation implements Engine.
func (r *Recorder) ResetAccumulation() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Call{Method: "ResetAccumulation"})

	return nil
}

// Terminate implements Engine.
func (r *Recorder) Terminate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.terminate = true
	r.record(Call{Method: "Terminate"})

	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Call(nil), r.calls...)
}

// Methods returns the recorded method names in call order.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Method
	}

	return out
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}

	return n
}

// Camera returns the last camera set.
func (r *Recorder) Camera() types.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.camera
}

// Lights returns the last light set.
func (r *Recorder) Lights() types.Lights {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lights
}

// TransferFunction returns the last transfer function set.
func (r *Recorder) TransferFunction() types.TransferFunction {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tf
}

// Size returns the last frame buffer size.
func (r *Recorder) Size() types.Size {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}

// Frames returns the number of rendered frames.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.frames
}

// Terminated reports whether Terminate was called.
func (r *Recorder) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.terminate
}
