package scene

import "cogentcore.org/core/math32"

// Material describes surface appearance. Key identifies materials that may be
// shared by several geometries in the same data group.
type Material struct {
	Key       string
	Kind      string
	Color     math32.Vector3
	Roughness float32
	Metallic  float32
	Opacity   float32
}

// Geometry is a surface primitive collection: *Mesh, *SphereSet or *CapsuleSet.
type Geometry interface {
	GeometryName() string
	Bounds() Bounds
	MaterialOf() Material
}

// Field is a volumetric scalar field: *Volume or *AMRBlock.
type Field interface {
	FieldName() string
	Bounds() Bounds
}

// Mesh is an indexed triangle mesh with optional per-vertex scalars.
type Mesh struct {
	Name     string
	Vertices []math32.Vector3
	Normals  []math32.Vector3
	Indices  []uint32
	Scalars  []float32
	Material Material
}

var _ Geometry = (*Mesh)(nil)

// GeometryName returns the mesh name.
func (m *Mesh) GeometryName() string { return m.Name }

// MaterialOf returns the mesh material.
func (m *Mesh) MaterialOf() Material { return m.Material }

// Triangles returns the number of complete index triples.
func (m *Mesh) Triangles() int { return len(m.Indices) / 3 }

// Bounds folds vertices and scalars.
func (m *Mesh) Bounds() Bounds {
	b := EmptyBounds()
	for _, v := range m.Vertices {
		b.ExtendPoint(v)
	}
	for _, s := range m.Scalars {
		b.ExtendScalar(s)
	}

	return b
}

// SphereSet is a set of spheres sharing a material. A per-sphere radius in
// Radii overrides Radius when present.
type SphereSet struct {
	Name     string
	Centers  []math32.Vector3
	Radius   float32
	Radii    []float32
	Scalars  []float32
	Material Material
}

var _ Geometry = (*SphereSet)(nil)

// GeometryName returns the set name.
func (s *SphereSet) GeometryName() string { return s.Name }

// MaterialOf returns the set material.
func (s *SphereSet) MaterialOf() Material { return s.Material }

// RadiusAt returns the radius of sphere i.
func (s *SphereSet) RadiusAt(i int) float32 {
	if i < len(s.Radii) {
		return s.Radii[i]
	}

	return s.Radius
}

// Bounds folds every sphere's extent and the scalar values.
func (s *SphereSet) Bounds() Bounds {
	b := EmptyBounds()
	for i, c := range s.Centers {
		r := s.RadiusAt(i)
		b.ExtendPoint(math32.Vec3(c.X-r, c.Y-r, c.Z-r))
		b.ExtendPoint(math32.Vec3(c.X+r, c.Y+r, c.Z+r))
	}
	for _, v := range s.Scalars {
		b.ExtendScalar(v)
	}

	return b
}

// Capsule is a swept sphere between two end points with per-end radii.
type Capsule struct {
	A, B             math32.Vector3
	RadiusA, RadiusB float32
}

// CapsuleSet is a curve made of capsule segments.
type CapsuleSet struct {
	Name     string
	Capsules []Capsule
	Scalars  []float32
	Material Material
}

var _ Geometry = (*CapsuleSet)(nil)

// GeometryName returns the set name.
func (c *CapsuleSet) GeometryName() string { return c.Name }

// MaterialOf returns the set material.
func (c *CapsuleSet) MaterialOf() Material { return c.Material }

// Bounds folds both end spheres of every capsule.
func (c *CapsuleSet) Bounds() Bounds {
	b := EmptyBounds()
	for _, cp := range c.Capsules {
		ra, rb := cp.RadiusA, cp.RadiusB
		b.ExtendPoint(math32.Vec3(cp.A.X-ra, cp.A.Y-ra, cp.A.Z-ra))
		b.ExtendPoint(math32.Vec3(cp.A.X+ra, cp.A.Y+ra, cp.A.Z+ra))
		b.ExtendPoint(math32.Vec3(cp.B.X-rb, cp.B.Y-rb, cp.B.Z-rb))
		b.ExtendPoint(math32.Vec3(cp.B.X+rb, cp.B.Y+rb, cp.B.Z+rb))
	}
	for _, v := range c.Scalars {
		b.ExtendScalar(v)
	}

	return b
}
