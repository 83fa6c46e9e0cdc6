package peer

import (
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/quorumnet/overlay/internal/metrics"
	"github.com/quorumnet/overlay/internal/transport"
	"github.com/quorumnet/overlay/pkg/types"
)

// SeenMessages tracks fingerprints of application messages already
// observed, for gossip de-duplication. It grows monotonically; nothing
// in the spec requires eviction for the expected workload.
type SeenMessages struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewSeenMessages returns an empty de-dup set.
func NewSeenMessages() *SeenMessages {
	return &SeenMessages{seen: make(map[uint64]struct{})}
}

// Fingerprint computes a deterministic digest of a gossip payload.
// The reference implementation used Python's in-process hash(), which
// is salted per-process and not comparable across peers; this uses
// murmur3's 64-bit sum over the payload bytes instead; so the
// fingerprint is reproducible across restarts and across peers
// (spec section 9, Fingerprint Stability Open Question).
func Fingerprint(message string) uint64 {
	h := murmur3.New64()
	h.Write([]byte(message))
	return h.Sum64()
}

// MarkSeen records fingerprint as observed. Returns true if it was not
// already present (i.e. this call is the one that should broadcast).
func (s *SeenMessages) MarkSeen(fingerprint uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[fingerprint]; ok {
		return false
	}
	s.seen[fingerprint] = struct{}{}
	return true
}

// Size returns the number of distinct messages observed so far.
func (s *SeenMessages) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// fingerprintBytes is exposed for tests that want to assert
// cross-process determinism without depending on murmur3 internals.
func fingerprintBytes(message string) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, Fingerprint(message))
	return buf
}

// BroadcastMessage sends msg as a gossip frame to every current
// neighbor except exclude (if non-nil). The neighbor set is snapshotted
// under its own lock before any I/O happens, so the lock is never held
// across a network call (spec section 5).
func (p *PeerNode) BroadcastMessage(msg string, exclude *types.Endpoint) {
	neighbors := p.neighbors.Snapshot()

	targets := neighbors[:0:0]
	for _, n := range neighbors {
		if exclude != nil && n == *exclude {
			continue
		}
		targets = append(targets, n)
	}

	results := transport.FanOut(targets, func(ep types.Endpoint) error {
		return transport.Send(ep, types.GossipMessage{Type: types.KindGossip, Message: msg}, transport.DefaultTimeout)
	})
	for i, err := range results {
		transport.LogTransportError("gossip broadcast", targets[i], err)
	}
}

// handleGossip processes an inbound gossip frame: de-dup, log, and
// re-broadcast to every neighbor except from. handleConn passes the
// connection's remote address as from; its port is the sender's
// outgoing (ephemeral) port, not its listening port, so it does not
// match the sender's neighbor entry and the sender is not excluded —
// the sender receives the re-broadcast and its own de-dup drops it.
func (p *PeerNode) handleGossip(msg string, from types.Endpoint) {
	fp := Fingerprint(msg)
	if !p.seen.MarkSeen(fp) {
		return
	}

	metrics.GossipReceivedTotal.Inc()
	log.Printf("[%s] gossip received: %s", p.self, msg)
	p.BroadcastMessage(msg, &from)
}

// runOriginator broadcasts originatorMessageCount self-originated
// messages at a fixed cadence, then returns. Each payload encodes an
// originator tag and a monotonically increasing counter so it is
// self-unique per originator (spec section 4.4).
func (p *PeerNode) runOriginator() {
	for i := 0; i < originatorMessageCount && p.isRunning(); i++ {
		msg := p.originatorPayload(i)
		p.seen.MarkSeen(Fingerprint(msg))
		metrics.GossipOriginatedTotal.Inc()
		log.Printf("[%s] originating: %s", p.self, msg)
		p.BroadcastMessage(msg, nil)

		select {
		case <-p.stopCh:
			return
		case <-time.After(originatorInterval):
		}
	}
}
