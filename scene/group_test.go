package scene

import (
	"errors"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/require"
)

func TestDataGroup_BoundsFoldsAllCollections(t *testing.T) {
	g := NewDataGroup(3)
	require.True(t, g.IsEmpty())
	require.True(t, g.Bounds().IsEmpty())

	g.AddMesh(&Mesh{
		Name:     "tri",
		Vertices: []math32.Vector3{math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0), math32.Vec3(0, 1, 0)},
		Indices:  []uint32{0, 1, 2},
		Scalars:  []float32{0.5, 1, 2},
	})
	g.AddSpheres(&SphereSet{
		Name:    "s",
		Centers: []math32.Vector3{math32.Vec3(5, 5, 5)},
		Radius:  1,
	})
	g.AddVolume(&Volume{
		Name:    "v",
		Dims:    [3]int{2, 2, 2},
		Origin:  math32.Vec3(-2, 0, 0),
		Spacing: math32.Vec3(1, 1, 1),
		Voxels:  []float32{-3, 0, 0, 0, 0, 0, 0, 9},
	})

	b := g.Bounds()
	require.False(t, b.IsEmpty())
	require.Equal(t, math32.Vec3(-2, 0, 0), b.Box.Min)
	require.Equal(t, math32.Vec3(6, 6, 6), b.Box.Max)
	require.True(t, b.HasScalars())
	require.Equal(t, -3.0, b.Scalars.Min)
	require.Equal(t, 9.0, b.Scalars.Max)
}

func TestDataGroup_BoundsRecomputedOnDemand(t *testing.T) {
	g := NewDataGroup(0)
	g.AddSpheres(&SphereSet{Name: "a", Centers: []math32.Vector3{math32.Vec3(0, 0, 0)}, Radius: 1})
	first := g.Bounds()

	g.AddSpheres(&SphereSet{Name: "b", Centers: []math32.Vector3{math32.Vec3(10, 0, 0)}, Radius: 1})
	second := g.Bounds()

	require.Equal(t, float32(1), first.Box.Max.X)
	require.Equal(t, float32(11), second.Box.Max.X)
}

func TestDataGroup_Handle(t *testing.T) {
	t.Run("get-or-create caches by key", func(t *testing.T) {
		g := NewDataGroup(1)
		calls := 0
		create := func() (Handle, error) {
			calls++
			return Handle(100 + calls), nil
		}

		h1, err := g.Handle(KeyOf("material", "steel"), create)
		require.NoError(t, err)
		h2, err := g.Handle(KeyOf("material", "steel"), create)
		require.NoError(t, err)
		h3, err := g.Handle(KeyOf("material", "glass"), create)
		require.NoError(t, err)

		require.Equal(t, h1, h2)
		require.NotEqual(t, h1, h3)
		require.Equal(t, 2, calls)
		require.Equal(t, 2, g.CachedHandles())
	})

	t.Run("failed create is not cached", func(t *testing.T) {
		g := NewDataGroup(2)
		boom := errors.New("boom")

		_, err := g.Handle(KeyOf("x"), func() (Handle, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
		require.Equal(t, 0, g.CachedHandles())

		h, err := g.Handle(KeyOf("x"), func() (Handle, error) { return 7, nil })
		require.NoError(t, err)
		require.Equal(t, Handle(7), h)
	})

	t.Run("release clears the cache", func(t *testing.T) {
		g := NewDataGroup(4)
		_, _ = g.Handle(KeyOf("a"), func() (Handle, error) { return 1, nil })
		_, _ = g.Handle(KeyOf("b"), func() (Handle, error) { return 2, nil })

		released := g.ReleaseHandles()
		require.ElementsMatch(t, []Handle{1, 2}, released)
		require.Equal(t, 0, g.CachedHandles())
	})
}

func TestKeyOf_SeparatesParts(t *testing.T) {
	require.NotEqual(t, KeyOf("ab", "c"), KeyOf("a", "bc"))
	require.Equal(t, KeyOf("a", "b"), KeyOf("a", "b"))
}

func TestLocalModel(t *testing.T) {
	m := NewLocalModel()
	require.True(t, m.IsPassive())
	require.Equal(t, 0, m.Size())
	require.True(t, m.Bounds().IsEmpty())

	g := NewDataGroup(7)
	g.AddSpheres(&SphereSet{Name: "s", Centers: []math32.Vector3{math32.Vec3(1, 2, 3)}, Radius: 0.5})
	m.Add(g)

	require.False(t, m.IsPassive())
	require.Equal(t, 1, m.Size())
	require.Same(t, g, m.Group(7))
	require.Nil(t, m.Group(8))
	require.Equal(t, math32.Vec3(0.5, 1.5, 2.5), m.Bounds().Box.Min)
}

func TestBounds_Components(t *testing.T) {
	b := EmptyBounds()
	b.ExtendPoint(math32.Vec3(-1, 2, 3))
	b.ExtendPoint(math32.Vec3(4, 5, 6))
	b.ExtendScalar(-0.5)
	b.ExtendScalar(8)

	rebuilt := BoundsFromComponents(b.MinComponents(), b.MaxComponents())
	require.Equal(t, b.Box, rebuilt.Box)
	require.Equal(t, b.Scalars, rebuilt.Scalars)

	require.True(t, BoundsFromComponents(nil, nil).IsEmpty())
}

func TestAMRBlock_Bounds(t *testing.T) {
	blk := &AMRBlock{
		Name:      "l1",
		Level:     1,
		Origin:    math32.Vec3(0, 0, 0),
		CellWidth: 0.5,
		Dims:      [3]int{4, 2, 2},
		Data:      []float32{1, 2, 3},
	}

	b := blk.Bounds()
	require.Equal(t, math32.Vec3(2, 1, 1), b.Box.Max)
	require.Equal(t, 1.0, b.Scalars.Min)
	require.Equal(t, 3.0, b.Scalars.Max)

	require.True(t, (&AMRBlock{}).Bounds().IsEmpty())
}
