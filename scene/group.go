package scene

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Handle identifies an object created by a render engine.
type Handle uint64

// Key is a stable content key used to dedupe engine objects within a data group.
type Key uint64

// KeyOf hashes the given parts into a Key. Parts are separated so that
// ("ab", "c") and ("a", "bc") produce different keys.
func KeyOf(parts ...string) Key {
	return Key(xxh3.HashString(strings.Join(parts, "\x00")))
}

// DataGroup is the unit of data parallelism: one partition of the scene owned
// by exactly one rank.
type DataGroup struct {
	ID int

	Meshes   []*Mesh
	Volumes  []*Volume
	Spheres  []*SphereSet
	Capsules []*CapsuleSet
	AMR      []*AMRBlock

	handles map[Key]Handle
}

// NewDataGroup creates an empty data group.
func NewDataGroup(id int) *DataGroup {
	return &DataGroup{ID: id, handles: make(map[Key]Handle)}
}

// AddMesh appends a mesh.
func (g *DataGroup) AddMesh(m *Mesh) { g.Meshes = append(g.Meshes, m) }

// AddVolume appends a structured volume.
func (g *DataGroup) AddVolume(v *Volume) { g.Volumes = append(g.Volumes, v) }

// AddSpheres appends a sphere set.
func (g *DataGroup) AddSpheres(s *SphereSet) { g.Spheres = append(g.Spheres, s) }

// AddCapsules appends a capsule set.
func (g *DataGroup) AddCapsules(c *CapsuleSet) { g.Capsules = append(g.Capsules, c) }

// AddAMR appends an AMR block.
func (g *DataGroup) AddAMR(b *AMRBlock) { g.AMR = append(g.AMR, b) }

// Geometries returns every surface collection in a fixed order: meshes,
// spheres, capsules.
func (g *DataGroup) Geometries() []Geometry {
	out := make([]Geometry, 0, len(g.Meshes)+len(g.Spheres)+len(g.Capsules))
	for _, m := range g.Meshes {
		out = append(out, m)
	}
	for _, s := range g.Spheres {
		out = append(out, s)
	}
	for _, c := range g.Capsules {
		out = append(out, c)
	}

	return out
}

// Fields returns every volumetric collection: structured volumes then AMR blocks.
func (g *DataGroup) Fields() []Field {
	out := make([]Field, 0, len(g.Volumes)+len(g.AMR))
	for _, v := range g.Volumes {
		out = append(out, v)
	}
	for _, b := range g.AMR {
		out = append(out, b)
	}

	return out
}

// IsEmpty reports whether the group holds no content.
func (g *DataGroup) IsEmpty() bool {
	return len(g.Meshes)+len(g.Volumes)+len(g.Spheres)+len(g.Capsules)+len(g.AMR) == 0
}

// Bounds folds the bounds of every member collection.
func (g *DataGroup) Bounds() Bounds {
	b := EmptyBounds()
	for _, geom := range g.Geometries() {
		b.Extend(geom.Bounds())
	}
	for _, f := range g.Fields() {
		b.Extend(f.Bounds())
	}

	return b
}

// Handle returns the engine handle cached under key, calling create on a miss.
// A failed create is not cached.
func (g *DataGroup) Handle(key Key, create func() (Handle, error)) (Handle, error) {
	if h, ok := g.handles[key]; ok {
		return h, nil
	}

	h, err := create()
	if err != nil {
		return 0, fmt.Errorf("group %d: %w", g.ID, err)
	}
	g.handles[key] = h

	return h, nil
}

// CachedHandles returns the number of cached engine handles.
func (g *DataGroup) CachedHandles() int {
	return len(g.handles)
}

// ReleaseHandles drops every cached handle, returning them for engine-side cleanup.
func (g *DataGroup) ReleaseHandles() []Handle {
	out := make([]Handle, 0, len(g.handles))
	for _, h := range g.handles {
		out = append(out, h)
	}
	clear(g.handles)

	return out
}
