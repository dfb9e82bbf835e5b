package engine

import (
	"fmt"

	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

// Engine is a render backend for one process.
//
// Object creation calls are scoped by data group ID. Every method is a
// blocking local call; none of them communicates with other ranks.
type Engine interface {
	// NewMaterial creates a surface material.
	NewMaterial(group int, m scene.Material) (scene.Handle, error)

	// NewGeometry creates a surface object bound to a material handle.
	NewGeometry(group int, g scene.Geometry, material scene.Handle) (scene.Handle, error)

	// NewVolume creates a volumetric object.
	NewVolume(group int, f scene.Field) (scene.Handle, error)

	// AddInstance registers an object as a top-level instance of the group.
	AddInstance(group int, object scene.Handle) error

	SetCamera(camera types.Camera) error
	SetLights(lights types.Lights) error
	SetTransferFunction(tf types.TransferFunction) error

	// Resize reallocates the frame buffer. host receives finished frames and
	// has size.Pixels() RGBA8 entries, or is nil on ranks without a display.
	Resize(size types.Size, host []uint32) error

	RenderFrame() error
	ResetAccumulation() error

	// Terminate releases engine resources. No other call follows it.
	Terminate() error
}

// Commit creates engine objects for every local data group and registers
// them as instances.
//
// Materials are deduplicated per group through DataGroup.Handle, keyed by
// Material.Key; materials with an empty key are never shared.
//
// Returns:
//   - error: First engine error, wrapped with the group and object name
func Commit(eng Engine, model *scene.LocalModel) error {
	for _, g := range model.Groups() {
		if err := commitGroup(eng, g); err != nil {
			return err
		}
	}

	return nil
}

func commitGroup(eng Engine, g *scene.DataGroup) error {
	for i, geom := range g.Geometries() {
		mat := geom.MaterialOf()
		key := scene.KeyOf("material", mat.Key)
		if mat.Key == "" {
			key = scene.KeyOf("material", "#anon", geom.GeometryName(), fmt.Sprint(i))
		}

		matHandle, err := g.Handle(key, func() (scene.Handle, error) {
			return eng.NewMaterial(g.ID, mat)
		})
		if err != nil {
			return fmt.Errorf("material for %s: %w", geom.GeometryName(), err)
		}

		h, err := eng.NewGeometry(g.ID, geom, matHandle)
		if err != nil {
			return fmt.Errorf("group %d: geometry %s: %w", g.ID, geom.GeometryName(), err)
		}
		if err := eng.AddInstance(g.ID, h); err != nil {
			return fmt.Errorf("group %d: instance %s: %w", g.ID, geom.GeometryName(), err)
		}
	}

	for _, f := range g.Fields() {
		h, err := eng.NewVolume(g.ID, f)
		if err != nil {
			return fmt.Errorf("group %d: volume %s: %w", g.ID, f.FieldName(), err)
		}
		if err := eng.AddInstance(g.ID, h); err != nil {
			return fmt.Errorf("group %d: instance %s: %w", g.ID, f.FieldName(), err)
		}
	}

	return nil
}
