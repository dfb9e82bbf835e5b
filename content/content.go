package content

import (
	"errors"
	"fmt"

	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

const (
	vec3Bytes  = 12
	floatBytes = 4
	indexBytes = 4
)

// ErrNilGroup is returned when Materialize is called without a target group.
var ErrNilGroup = errors.New("nil data group")

// Mesh is a descriptor for an in-memory triangle mesh.
type Mesh struct {
	Mesh *scene.Mesh
}

var _ types.Content = (*Mesh)(nil)

// NewMesh creates a mesh descriptor.
func NewMesh(m *scene.Mesh) *Mesh { return &Mesh{Mesh: m} }

// ProjectedCost returns the approximate mesh size in bytes.
func (c *Mesh) ProjectedCost() float64 {
	m := c.Mesh
	return float64(len(m.Vertices)*vec3Bytes + len(m.Normals)*vec3Bytes +
		len(m.Indices)*indexBytes + len(m.Scalars)*floatBytes)
}

// Materialize appends the mesh to the group.
func (c *Mesh) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	if len(c.Mesh.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: index count %d is not a multiple of 3", c.Mesh.Name, len(c.Mesh.Indices))
	}
	for _, idx := range c.Mesh.Indices {
		if int(idx) >= len(c.Mesh.Vertices) {
			return fmt.Errorf("mesh %q: index %d out of range (%d vertices)", c.Mesh.Name, idx, len(c.Mesh.Vertices))
		}
	}
	g.AddMesh(c.Mesh)

	return nil
}

// Describe returns "mesh:<name>".
func (c *Mesh) Describe() string { return "mesh:" + c.Mesh.Name }

// Volume is a descriptor for an in-memory structured volume.
type Volume struct {
	Volume *scene.Volume
}

var _ types.Content = (*Volume)(nil)

// NewVolume creates a volume descriptor.
func NewVolume(v *scene.Volume) *Volume { return &Volume{Volume: v} }

// ProjectedCost returns the sample storage size in bytes.
func (c *Volume) ProjectedCost() float64 {
	return float64(c.Volume.Count() * floatBytes)
}

// Materialize appends the volume to the group.
func (c *Volume) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	if c.Volume.Count() != len(c.Volume.Voxels) {
		return fmt.Errorf("volume %q: dims %v need %d samples, have %d",
			c.Volume.Name, c.Volume.Dims, c.Volume.Count(), len(c.Volume.Voxels))
	}
	g.AddVolume(c.Volume)

	return nil
}

// Describe returns "volume:<name>".
func (c *Volume) Describe() string { return "volume:" + c.Volume.Name }

// Spheres is a descriptor for a sphere set.
type Spheres struct {
	Spheres *scene.SphereSet
}

var _ types.Content = (*Spheres)(nil)

// NewSpheres creates a sphere set descriptor.
func NewSpheres(s *scene.SphereSet) *Spheres { return &Spheres{Spheres: s} }

// ProjectedCost returns the approximate set size in bytes.
func (c *Spheres) ProjectedCost() float64 {
	s := c.Spheres
	return float64(len(s.Centers)*vec3Bytes + len(s.Radii)*floatBytes + len(s.Scalars)*floatBytes)
}

// Materialize appends the sphere set to the group.
func (c *Spheres) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	if n := len(c.Spheres.Radii); n != 0 && n != len(c.Spheres.Centers) {
		return fmt.Errorf("spheres %q: %d radii for %d centers", c.Spheres.Name, n, len(c.Spheres.Centers))
	}
	g.AddSpheres(c.Spheres)

	return nil
}

// Describe returns "spheres:<name>".
func (c *Spheres) Describe() string { return "spheres:" + c.Spheres.Name }

// Capsules is a descriptor for a capsule (curve) set.
type Capsules struct {
	Capsules *scene.CapsuleSet
}

var _ types.Content = (*Capsules)(nil)

// NewCapsules creates a capsule set descriptor.
func NewCapsules(c *scene.CapsuleSet) *Capsules { return &Capsules{Capsules: c} }

// ProjectedCost returns the approximate set size in bytes.
func (c *Capsules) ProjectedCost() float64 {
	return float64(len(c.Capsules.Capsules)*(2*vec3Bytes+2*floatBytes) + len(c.Capsules.Scalars)*floatBytes)
}

// Materialize appends the capsule set to the group.
func (c *Capsules) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	g.AddCapsules(c.Capsules)

	return nil
}

// Describe returns "capsules:<name>".
func (c *Capsules) Describe() string { return "capsules:" + c.Capsules.Name }

// AMR is a descriptor for one AMR block.
type AMR struct {
	Block *scene.AMRBlock
}

var _ types.Content = (*AMR)(nil)

// NewAMR creates an AMR block descriptor.
func NewAMR(b *scene.AMRBlock) *AMR { return &AMR{Block: b} }

// ProjectedCost returns the cell storage size in bytes.
func (c *AMR) ProjectedCost() float64 {
	return float64(len(c.Block.Data) * floatBytes)
}

// Materialize appends the block to the group.
func (c *AMR) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	d := c.Block.Dims
	if d[0]*d[1]*d[2] != len(c.Block.Data) {
		return fmt.Errorf("amr %q: dims %v need %d cells, have %d", c.Block.Name, d, d[0]*d[1]*d[2], len(c.Block.Data))
	}
	g.AddAMR(c.Block)

	return nil
}

// Describe returns "amr:<name>/L<level>".
func (c *AMR) Describe() string { return fmt.Sprintf("amr:%s/L%d", c.Block.Name, c.Block.Level) }

// Func adapts a load function into a descriptor.
type Func struct {
	Name string
	Cost float64
	Load func(g *scene.DataGroup) error
}

var _ types.Content = (*Func)(nil)

// ProjectedCost returns the configured cost.
func (f *Func) ProjectedCost() float64 { return f.Cost }

// Materialize calls Load.
func (f *Func) Materialize(g *scene.DataGroup) error {
	if g == nil {
		return ErrNilGroup
	}
	if f.Load == nil {
		return nil
	}

	return f.Load(g)
}

// Describe returns the configured name.
func (f *Func) Describe() string { return f.Name }
