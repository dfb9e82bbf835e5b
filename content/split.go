package content

import (
	"fmt"

	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

// ShardName returns the name of shard i of a split collection.
func ShardName(name string, i int) string {
	return fmt.Sprintf("%s#%d", name, i)
}

// SplitSpheres splits a sphere set into up to n contiguous shards of nearly
// equal size. Every shard keeps the parent material and default radius.
func SplitSpheres(s *scene.SphereSet, n int) []types.Content {
	count := len(s.Centers)
	if n < 1 {
		n = 1
	}
	if n > count && count > 0 {
		n = count
	}
	if count == 0 {
		return []types.Content{NewSpheres(s)}
	}

	out := make([]types.Content, 0, n)
	for i := range n {
		lo := i * count / n
		hi := (i + 1) * count / n
		shard := &scene.SphereSet{
			Name:     ShardName(s.Name, i),
			Centers:  s.Centers[lo:hi],
			Radius:   s.Radius,
			Material: s.Material,
		}
		if len(s.Radii) == count {
			shard.Radii = s.Radii[lo:hi]
		}
		if len(s.Scalars) == count {
			shard.Scalars = s.Scalars[lo:hi]
		}
		out = append(out, NewSpheres(shard))
	}

	return out
}

// SplitVolume splits a structured volume into up to n slabs along Z.
// Neighbouring slabs share their boundary plane so that interpolation across
// the seam needs no data from another rank.
func SplitVolume(v *scene.Volume, n int) []types.Content {
	nz := v.Dims[2]
	if n < 1 {
		n = 1
	}
	if nz < 2 || n == 1 || v.Count() != len(v.Voxels) {
		return []types.Content{NewVolume(v)}
	}
	if n > nz-1 {
		n = nz - 1
	}

	plane := v.Dims[0] * v.Dims[1]
	out := make([]types.Content, 0, n)
	for i := range n {
		z0 := i * (nz - 1) / n
		z1 := (i + 1) * (nz - 1) / n
		slab := &scene.Volume{
			Name:    ShardName(v.Name, i),
			Dims:    [3]int{v.Dims[0], v.Dims[1], z1 - z0 + 1},
			Origin:  v.Origin,
			Spacing: v.Spacing,
			Voxels:  v.Voxels[z0*plane : (z1+1)*plane],
		}
		slab.Origin.Z += float32(z0) * v.Spacing.Z
		out = append(out, NewVolume(slab))
	}

	return out
}
