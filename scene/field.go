package scene

import "cogentcore.org/core/math32"

// Volume is a structured scalar grid with vertex-centered samples.
// Voxels are stored x-fastest: index = x + Dims[0]*(y + Dims[1]*z).
type Volume struct {
	Name    string
	Dims    [3]int
	Origin  math32.Vector3
	Spacing math32.Vector3
	Voxels  []float32
}

var _ Field = (*Volume)(nil)

// FieldName returns the volume name.
func (v *Volume) FieldName() string { return v.Name }

// Count returns the number of samples implied by Dims.
func (v *Volume) Count() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// Bounds spans Origin to Origin + (Dims-1)*Spacing and folds the sample range.
func (v *Volume) Bounds() Bounds {
	b := EmptyBounds()
	if v.Count() == 0 {
		return b
	}

	b.ExtendPoint(v.Origin)
	b.ExtendPoint(math32.Vec3(
		v.Origin.X+float32(v.Dims[0]-1)*v.Spacing.X,
		v.Origin.Y+float32(v.Dims[1]-1)*v.Spacing.Y,
		v.Origin.Z+float32(v.Dims[2]-1)*v.Spacing.Z,
	))
	for _, s := range v.Voxels {
		b.ExtendScalar(s)
	}

	return b
}

// AMRBlock is one cell-centered brick of an adaptive mesh refinement hierarchy.
type AMRBlock struct {
	Name      string
	Level     int
	Origin    math32.Vector3
	CellWidth float32
	Dims      [3]int
	Data      []float32
}

var _ Field = (*AMRBlock)(nil)

// FieldName returns the block name.
func (a *AMRBlock) FieldName() string { return a.Name }

// Bounds spans Origin to Origin + Dims*CellWidth and folds the cell values.
func (a *AMRBlock) Bounds() Bounds {
	b := EmptyBounds()
	if a.Dims[0] <= 0 || a.Dims[1] <= 0 || a.Dims[2] <= 0 {
		return b
	}

	b.ExtendPoint(a.Origin)
	b.ExtendPoint(math32.Vec3(
		a.Origin.X+float32(a.Dims[0])*a.CellWidth,
		a.Origin.Y+float32(a.Dims[1])*a.CellWidth,
		a.Origin.Z+float32(a.Dims[2])*a.CellWidth,
	))
	for _, s := range a.Data {
		b.ExtendScalar(s)
	}

	return b
}
