package protocol

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"cogentcore.org/core/math32"

	"github.com/arloliu/scenepart/types"
)

// MaxArrayLen bounds every length prefix. A larger value can only come from
// a misaligned stream.
const MaxArrayLen = 1 << 20

// Field sizes on the wire.
const (
	int32Size    = 4
	float32Size  = 4
	vec3Size     = 3 * float32Size
	vec4Size     = 4 * float32Size
	intervalSize = 2 * float32Size
)

// stream moves protocol fields from the root to every other member, one
// broadcast per field, little-endian.
//
// Each method is symmetric: on the root it broadcasts *v, elsewhere it
// overwrites *v with what the root sent. Master and Worker share the same
// payload functions, so field order cannot drift between the two roles.
type stream struct {
	pg      types.ProcessGroup
	root    int
	scratch [vec4Size]byte
}

func newStream(pg types.ProcessGroup, root int) *stream {
	return &stream{pg: pg, root: root}
}

func (s *stream) isRoot() bool {
	return s.pg.Rank() == s.root
}

func (s *stream) int32(ctx context.Context, v *int32) error {
	buf := s.scratch[:int32Size]
	if s.isRoot() {
		binary.LittleEndian.PutUint32(buf, uint32(*v))
	}
	if err := s.pg.Broadcast(ctx, s.root, buf); err != nil {
		return err
	}
	*v = int32(binary.LittleEndian.Uint32(buf))

	return nil
}

func (s *stream) float32(ctx context.Context, v *float32) error {
	buf := s.scratch[:float32Size]
	if s.isRoot() {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(*v))
	}
	if err := s.pg.Broadcast(ctx, s.root, buf); err != nil {
		return err
	}
	*v = math.Float32frombits(binary.LittleEndian.Uint32(buf))

	return nil
}

func (s *stream) vec3(ctx context.Context, v *math32.Vector3) error {
	buf := s.scratch[:vec3Size]
	if s.isRoot() {
		putVec3(buf, *v)
	}
	if err := s.pg.Broadcast(ctx, s.root, buf); err != nil {
		return err
	}
	*v = getVec3(buf)

	return nil
}

func (s *stream) interval(ctx context.Context, v *types.Interval) error {
	buf := s.scratch[:intervalSize]
	if s.isRoot() {
		putFloat(buf, 0, v.Lo)
		putFloat(buf, 1, v.Hi)
	}
	if err := s.pg.Broadcast(ctx, s.root, buf); err != nil {
		return err
	}
	v.Lo, v.Hi = getFloat(buf, 0), getFloat(buf, 1)

	return nil
}

// length transfers an array length prefix.
func (s *stream) length(ctx context.Context, n int) (int, error) {
	if s.isRoot() && n > MaxArrayLen {
		return 0, fmt.Errorf("%w: array of %d entries exceeds %d", types.ErrInvalidConfig, n, MaxArrayLen)
	}

	v := int32(n)
	if err := s.int32(ctx, &v); err != nil {
		return 0, err
	}
	if v < 0 || v > MaxArrayLen {
		return 0, fmt.Errorf("%w: length prefix %d out of range", types.ErrProtocolDesync, v)
	}

	return int(v), nil
}

// bytes transfers a raw block whose length both sides already agree on.
func (s *stream) bytes(ctx context.Context, buf []byte) error {
	return s.pg.Broadcast(ctx, s.root, buf)
}

func putFloat(buf []byte, i int, f float32) {
	binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(f))
}

func getFloat(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*float32Size:]))
}

func putVec3(buf []byte, v math32.Vector3) {
	putFloat(buf, 0, v.X)
	putFloat(buf, 1, v.Y)
	putFloat(buf, 2, v.Z)
}

func getVec3(buf []byte) math32.Vector3 {
	return math32.Vec3(getFloat(buf, 0), getFloat(buf, 1), getFloat(buf, 2))
}
