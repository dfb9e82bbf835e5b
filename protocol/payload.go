package protocol

import (
	"context"

	"cogentcore.org/core/math32"

	"github.com/arloliu/scenepart/types"
)

// Payload transfer functions. Each runs unchanged on the master (encode) and
// on workers (decode).

func transferCamera(ctx context.Context, s *stream, c *types.Camera) error {
	if err := s.vec3(ctx, &c.Position); err != nil {
		return err
	}
	if err := s.vec3(ctx, &c.Direction); err != nil {
		return err
	}
	if err := s.vec3(ctx, &c.Up); err != nil {
		return err
	}

	return s.float32(ctx, &c.FovY)
}

func transferSize(ctx context.Context, s *stream, size *types.Size) error {
	if err := s.int32(ctx, &size.Width); err != nil {
		return err
	}

	return s.int32(ctx, &size.Height)
}

// pairSize is one light entry: two vectors.
const pairSize = 2 * vec3Size

func transferLights(ctx context.Context, s *stream, l *types.Lights) error {
	if err := s.float32(ctx, &l.Ambient); err != nil {
		return err
	}

	points, err := transferPairs(ctx, s, len(l.Points), func(i int) (math32.Vector3, math32.Vector3) {
		return l.Points[i].Position, l.Points[i].Power
	})
	if err != nil {
		return err
	}
	if !s.isRoot() {
		l.Points = nil
		if len(points) > 0 {
			l.Points = make([]types.PointLight, len(points))
		}
		for i, p := range points {
			l.Points[i] = types.PointLight{Position: p[0], Power: p[1]}
		}
	}

	dirs, err := transferPairs(ctx, s, len(l.Directional), func(i int) (math32.Vector3, math32.Vector3) {
		return l.Directional[i].Direction, l.Directional[i].Radiance
	})
	if err != nil {
		return err
	}
	if !s.isRoot() {
		l.Directional = nil
		if len(dirs) > 0 {
			l.Directional = make([]types.DirectionalLight, len(dirs))
		}
		for i, d := range dirs {
			l.Directional[i] = types.DirectionalLight{Direction: d[0], Radiance: d[1]}
		}
	}

	return nil
}

// transferPairs moves a length-prefixed array of vector pairs as one raw block.
func transferPairs(ctx context.Context, s *stream, n int, at func(int) (math32.Vector3, math32.Vector3)) ([][2]math32.Vector3, error) {
	n, err := s.length(ctx, n)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n*pairSize)
	if s.isRoot() {
		for i := range n {
			a, b := at(i)
			putVec3(buf[i*pairSize:], a)
			putVec3(buf[i*pairSize+vec3Size:], b)
		}
	}
	if err := s.bytes(ctx, buf); err != nil {
		return nil, err
	}
	if s.isRoot() {
		return nil, nil
	}

	out := make([][2]math32.Vector3, n)
	for i := range out {
		out[i][0] = getVec3(buf[i*pairSize:])
		out[i][1] = getVec3(buf[i*pairSize+vec3Size:])
	}

	return out, nil
}

func transferTransferFunction(ctx context.Context, s *stream, tf *types.TransferFunction) error {
	if err := s.interval(ctx, &tf.Domain); err != nil {
		return err
	}

	n, err := s.length(ctx, len(tf.ColorMap))
	if err != nil {
		return err
	}
	buf := make([]byte, n*vec4Size)
	if s.isRoot() {
		for i, c := range tf.ColorMap {
			off := i * 4
			putFloat(buf, off, c.X)
			putFloat(buf, off+1, c.Y)
			putFloat(buf, off+2, c.Z)
			putFloat(buf, off+3, c.W)
		}
	}
	if err := s.bytes(ctx, buf); err != nil {
		return err
	}
	if !s.isRoot() {
		// An empty map decodes as nil, matching what the master sent.
		tf.ColorMap = nil
		if n > 0 {
			tf.ColorMap = make([]math32.Vector4, n)
		}
		for i := range tf.ColorMap {
			off := i * 4
			tf.ColorMap[i] = math32.Vec4(getFloat(buf, off), getFloat(buf, off+1), getFloat(buf, off+2), getFloat(buf, off+3))
		}
	}

	return s.float32(ctx, &tf.BaseDensity)
}
