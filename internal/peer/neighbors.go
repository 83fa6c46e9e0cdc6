// Package peer implements the peer side of the overlay: bootstrap and
// registration, power-law neighbor selection, epidemic gossip with
// de-duplication, and the suspicion/consensus/report failure detector.
package peer

import (
	"math"
	"math/rand"
	"sync"

	"github.com/quorumnet/overlay/pkg/types"
)

// powerLawAlpha is the exponent used for rank-based neighbor weighting.
const powerLawAlpha = 2.0

// maxNeighbors bounds how many neighbors a single selection round picks
// (k = min(maxNeighbors, n) per spec section 4.3).
const maxNeighbors = 3

// NeighborSet is the set of endpoints a peer considers its gossip
// neighbors. It is mutated only by the peer itself, on a successful
// outbound peer_info handshake or an inbound one, and always excludes
// self.
type NeighborSet struct {
	mu   sync.RWMutex
	self types.Endpoint
	set  map[types.Endpoint]struct{}
}

// NewNeighborSet returns an empty neighbor set for self.
func NewNeighborSet(self types.Endpoint) *NeighborSet {
	return &NeighborSet{self: self, set: make(map[types.Endpoint]struct{})}
}

// Add inserts ep unless it is self. Returns true if newly added.
func (n *NeighborSet) Add(ep types.Endpoint) bool {
	if ep == n.self {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.set[ep]; ok {
		return false
	}
	n.set[ep] = struct{}{}
	return true
}

// Contains reports whether ep is a current neighbor.
func (n *NeighborSet) Contains(ep types.Endpoint) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.set[ep]
	return ok
}

// Snapshot takes a point-in-time copy of the neighbor set under the
// critical section, so the caller can perform network I/O afterwards
// without holding the lock (spec section 5's snapshot-then-send rule).
func (n *NeighborSet) Snapshot() []types.Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]types.Endpoint, 0, len(n.set))
	for ep := range n.set {
		out = append(out, ep)
	}
	return out
}

// Size returns the current neighbor count.
func (n *NeighborSet) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.set)
}

// SelectPowerLaw assigns rank-based weights w_i = (i+1)^-alpha to
// candidates in the order given (NOT sorted by identity — the ranking
// basis is each node's own discovery order, deliberately uncoordinated
// across nodes, which is what produces a heavy-tailed aggregate degree
// distribution per spec section 4.3), normalizes them, and samples
// k = min(maxNeighbors, n) indices with replacement.
func SelectPowerLaw(candidates []types.Endpoint) []types.Endpoint {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	weights := make([]float64, n)
	var total float64
	for i := range candidates {
		w := math.Pow(float64(i+1), -powerLawAlpha)
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}

	k := maxNeighbors
	if n < k {
		k = n
	}

	selected := make([]types.Endpoint, 0, k)
	for i := 0; i < k; i++ {
		selected = append(selected, candidates[weightedIndex(weights)])
	}
	return selected
}

// weightedIndex samples one index from a normalized weight vector.
func weightedIndex(weights []float64) int {
	r := rand.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if r <= cum {
			return i
		}
	}
	return len(weights) - 1
}
