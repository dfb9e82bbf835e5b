// Package hash provides a consistent hash ring over named nodes.
package hash

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// Ring implements a consistent hash ring with virtual nodes.
//
// Keys map to the first virtual node clockwise from the key hash. Nodes are
// identified both by name and by their index in the deduplicated node list.
type Ring struct {
	// nodes holds all virtual nodes on the ring, sorted by hash
	nodes []virtualNode

	// names holds the unique node names in insertion order
	names []string

	seed uint64
}

type virtualNode struct {
	hash    uint64
	nodeIdx int
}

// NewRing creates a consistent hash ring.
//
// Parameters:
//   - names: Node names to place on the ring (duplicates are ignored)
//   - virtualNodes: Virtual nodes per name (higher = better distribution)
//   - seed: Hash seed (0 means unseeded)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"group-0", "group-1"}, 150, 0)
//	idx := ring.NodeIndex("mesh:terrain")
func NewRing(names []string, virtualNodes int, seed uint64) *Ring {
	ring := &Ring{seed: seed}

	seen := make(map[string]struct{}, len(names))
	ring.names = make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		ring.names = append(ring.names, n)
	}

	if virtualNodes < 1 {
		virtualNodes = 1
	}
	ring.nodes = make([]virtualNode, 0, len(ring.names)*virtualNodes)
	for i, name := range ring.names {
		ring.addNode(name, i, virtualNodes)
	}

	slices.SortStableFunc(ring.nodes, func(a, b virtualNode) int {
		switch {
		case a.hash < b.hash:
			return -1
		case a.hash > b.hash:
			return 1
		default:
			return a.nodeIdx - b.nodeIdx
		}
	})

	return ring
}

// GetNode returns the name of the node responsible for key, or "" for an empty ring.
func (r *Ring) GetNode(key string) string {
	idx := r.NodeIndex(key)
	if idx < 0 {
		return ""
	}

	return r.names[idx]
}

// NodeIndex returns the index of the node responsible for key, or -1 for an empty ring.
func (r *Ring) NodeIndex(key string) int {
	if len(r.nodes) == 0 {
		return -1
	}

	return r.nodeByHash(r.hash(key))
}

// Successors returns node indices in ring order starting at the owner of key.
// Each node appears once. Useful for probing fallbacks when the owner is full.
func (r *Ring) Successors(key string) []int {
	if len(r.nodes) == 0 {
		return nil
	}

	start := r.search(r.hash(key))
	out := make([]int, 0, len(r.names))
	seen := make([]bool, len(r.names))
	for i := 0; i < len(r.nodes) && len(out) < len(r.names); i++ {
		n := r.nodes[(start+i)%len(r.nodes)]
		if seen[n.nodeIdx] {
			continue
		}
		seen[n.nodeIdx] = true
		out = append(out, n.nodeIdx)
	}

	return out
}

// Nodes returns a copy of the unique node names.
func (r *Ring) Nodes() []string {
	return append([]string(nil), r.names...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

func (r *Ring) addNode(name string, nodeIdx int, virtualNodes int) {
	for i := range virtualNodes {
		// Fold the name, then the vnode index seeded by the name hash.
		h := r.hash(name)

		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		h = xxh3.HashSeed(ib[:], h)

		r.nodes = append(r.nodes, virtualNode{hash: h, nodeIdx: nodeIdx})
	}
}

func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}

// search returns the position of the first virtual node with hash >= target, wrapping to 0.
func (r *Ring) search(target uint64) int {
	idx, _ := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		if node.hash < t {
			return -1
		}
		if node.hash > t {
			return 1
		}

		return 0
	})
	if idx >= len(r.nodes) {
		idx = 0
	}

	return idx
}

func (r *Ring) nodeByHash(target uint64) int {
	return r.nodes[r.search(target)].nodeIdx
}
