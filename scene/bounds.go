package scene

import (
	"cogentcore.org/core/math32"
	"cogentcore.org/core/math32/minmax"
)

// BoundsComponents is the number of float64 values Bounds packs into for
// element-wise reductions: box min/max (3 each) plus the scalar interval.
const BoundsComponents = 4

// Bounds is a spatial box plus the interval of scalar values inside it.
type Bounds struct {
	Box     math32.Box3
	Scalars minmax.F64
}

// EmptyBounds returns bounds that contain nothing and absorb any Extend.
func EmptyBounds() Bounds {
	b := Bounds{Box: math32.B3Empty()}
	b.Scalars.SetInfinity()

	return b
}

// IsEmpty reports whether the box is empty.
func (b Bounds) IsEmpty() bool {
	return b.Box.IsEmpty()
}

// HasScalars reports whether any scalar value was folded in.
func (b Bounds) HasScalars() bool {
	return b.Scalars.IsValid()
}

// Extend grows b to include o.
func (b *Bounds) Extend(o Bounds) {
	if !o.Box.IsEmpty() {
		b.Box.ExpandByBox(o.Box)
	}
	if o.Scalars.IsValid() {
		b.Scalars.FitInRange(o.Scalars)
	}
}

// ExtendPoint grows the box to include p.
func (b *Bounds) ExtendPoint(p math32.Vector3) {
	b.Box.ExpandByPoint(p)
}

// ExtendScalar grows the scalar interval to include v.
func (b *Bounds) ExtendScalar(v float32) {
	b.Scalars.FitValInRange(float64(v))
}

// MinComponents returns the values that reduce with min: box minimum and scalar minimum.
func (b Bounds) MinComponents() []float64 {
	return []float64{float64(b.Box.Min.X), float64(b.Box.Min.Y), float64(b.Box.Min.Z), b.Scalars.Min}
}

// MaxComponents returns the values that reduce with max: box maximum and scalar maximum.
func (b Bounds) MaxComponents() []float64 {
	return []float64{float64(b.Box.Max.X), float64(b.Box.Max.Y), float64(b.Box.Max.Z), b.Scalars.Max}
}

// BoundsFromComponents rebuilds bounds from reduced min and max components.
func BoundsFromComponents(mins, maxs []float64) Bounds {
	b := EmptyBounds()
	if len(mins) < BoundsComponents || len(maxs) < BoundsComponents {
		return b
	}

	b.Box.Min = math32.Vec3(float32(mins[0]), float32(mins[1]), float32(mins[2]))
	b.Box.Max = math32.Vec3(float32(maxs[0]), float32(maxs[1]), float32(maxs[2]))
	b.Scalars.Set(mins[3], maxs[3])

	return b
}
