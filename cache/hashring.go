package cache

import (
	"hash/fnv"
	"sort"
	"strconv"
)

// hashRing is a consistent-hash ring used to pick which L2 endpoint owns a
// given distributed key, when a Coordinator is configured with more than
// one L2Store. A single-endpoint Coordinator never builds one (spec's L2
// contract is endpoint-agnostic; sharding across endpoints is an
// enrichment this package adds on top of it, not a spec requirement).
//
// Adapted from pkg/utils/hash.go's HashRing: FNV-1a hashing, 150 virtual
// nodes per real node, binary search for the successor.
type hashRing struct {
	virtualNodes int
	nodeHashes   []uint32
	hashToNode   map[uint32]string
}

const defaultVirtualNodes = 150

func newHashRing(nodes []string) *hashRing {
	r := &hashRing{
		virtualNodes: defaultVirtualNodes,
		hashToNode:   make(map[uint32]string),
	}
	for _, n := range nodes {
		r.add(n)
	}
	return r
}

func (r *hashRing) add(node string) {
	for i := 0; i < r.virtualNodes; i++ {
		h := hashKey(node + "#" + strconv.Itoa(i))
		r.hashToNode[h] = node
		r.nodeHashes = append(r.nodeHashes, h)
	}
	sort.Slice(r.nodeHashes, func(i, j int) bool { return r.nodeHashes[i] < r.nodeHashes[j] })
}

// node returns the name of the node that owns key, and false if the ring
// is empty.
func (r *hashRing) node(key string) (string, bool) {
	if len(r.nodeHashes) == 0 {
		return "", false
	}
	h := hashKey(key)
	idx := sort.Search(len(r.nodeHashes), func(i int) bool { return r.nodeHashes[i] >= h })
	if idx == len(r.nodeHashes) {
		idx = 0
	}
	return r.hashToNode[r.nodeHashes[idx]], true
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
