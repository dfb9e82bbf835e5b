package cli

import (
	"cogentcore.org/core/math32"

	"github.com/arloliu/scenepart/content"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/source"
	"github.com/arloliu/scenepart/types"
)

// SceneOptions sizes the synthetic demo scene.
type SceneOptions struct {
	Spheres      int
	SphereShards int
	VolumeDim    int
	VolumeShards int
}

const sceneRadius = 10

// syntheticScene builds a deterministic scene: spheres on a Fibonacci shell
// with their height as scalar, plus a radial density volume filling the shell.
// Every call with the same options yields identical content in identical order.
func syntheticScene(o SceneOptions) (*source.Registry, error) {
	var contents []types.Content

	if o.Spheres > 0 {
		contents = append(contents, content.SplitSpheres(fibonacciShell(o.Spheres), o.SphereShards)...)
	}
	if o.VolumeDim > 1 {
		contents = append(contents, content.SplitVolume(radialVolume(o.VolumeDim), o.VolumeShards)...)
	}

	reg := source.NewRegistry()
	if err := reg.Register(contents...); err != nil {
		return nil, err
	}

	return reg, nil
}

func fibonacciShell(n int) *scene.SphereSet {
	golden := math32.Pi * (3 - math32.Sqrt(5))
	set := &scene.SphereSet{
		Name:    "shell",
		Centers: make([]math32.Vector3, n),
		Scalars: make([]float32, n),
		Radius:  0.2,
		Material: scene.Material{
			Key:       "shell",
			Kind:      "principled",
			Color:     math32.Vec3(0.8, 0.5, 0.2),
			Roughness: 0.4,
			Opacity:   1,
		},
	}

	for i := range n {
		y := 1 - 2*(float32(i)+0.5)/float32(n)
		r := math32.Sqrt(1 - y*y)
		theta := golden * float32(i)
		set.Centers[i] = math32.Vec3(r*math32.Cos(theta), y, r*math32.Sin(theta)).MulScalar(sceneRadius)
		set.Scalars[i] = y
	}

	return set
}

func radialVolume(dim int) *scene.Volume {
	spacing := float32(2*sceneRadius) / float32(dim-1)
	v := &scene.Volume{
		Name:    "density",
		Dims:    [3]int{dim, dim, dim},
		Origin:  math32.Vec3(-sceneRadius, -sceneRadius, -sceneRadius),
		Spacing: math32.Vec3(spacing, spacing, spacing),
		Voxels:  make([]float32, dim*dim*dim),
	}

	for z := range dim {
		for y := range dim {
			for x := range dim {
				p := v.Origin.Add(math32.Vec3(float32(x), float32(y), float32(z)).MulScalar(spacing))
				v.Voxels[x+dim*(y+dim*z)] = max(0, 1-p.Length()/sceneRadius)
			}
		}
	}

	return v
}
