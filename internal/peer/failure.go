package peer

import (
	"log"
	"sync"
	"time"

	"github.com/quorumnet/overlay/internal/metrics"
	"github.com/quorumnet/overlay/internal/transport"
	"github.com/quorumnet/overlay/pkg/types"
)

// escalationThreshold is the consecutive-ping-failure strike count at
// which a peer enters the consensus phase for a neighbor.
const escalationThreshold = 2

// pingInterval is how often the ping loop wakes to probe neighbors.
const pingInterval = 3 * time.Second

// pingTimeout bounds each individual ping exchange.
const pingTimeout = 3 * time.Second

// SuspicionState tracks, per neighbor, the consecutive ping-failure
// strike count and the set of neighbors (including possibly self) that
// have voted the neighbor dead. It also records which subjects this
// peer has already reported, so a reached "reported" state suppresses
// further seed reports from this observer (spec section 9, Duplicate
// Report Suppression Open Question).
type SuspicionState struct {
	mu       sync.Mutex
	strikes  map[types.Endpoint]int
	accusers map[types.Endpoint]map[types.Endpoint]struct{}
	reported map[types.Endpoint]bool
}

// NewSuspicionState returns empty suspicion tracking state.
func NewSuspicionState() *SuspicionState {
	return &SuspicionState{
		strikes:  make(map[types.Endpoint]int),
		accusers: make(map[types.Endpoint]map[types.Endpoint]struct{}),
		reported: make(map[types.Endpoint]bool),
	}
}

// RecordSuccess resets the strike count for ep to zero (healthy).
func (s *SuspicionState) RecordSuccess(ep types.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strikes[ep] = 0
}

// RecordFailure increments the strike count for ep and returns the new
// value.
func (s *SuspicionState) RecordFailure(ep types.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strikes[ep]++
	return s.strikes[ep]
}

// Strikes returns the current strike count for ep.
func (s *SuspicionState) Strikes(ep types.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strikes[ep]
}

// AddAccuser records that voter accuses subject, returning the updated
// accuser count for subject.
func (s *SuspicionState) AddAccuser(subject, voter types.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.accusers[subject]
	if !ok {
		set = make(map[types.Endpoint]struct{})
		s.accusers[subject] = set
	}
	set[voter] = struct{}{}
	return len(set)
}

// AccuserCount returns the number of distinct accusers recorded for
// subject.
func (s *SuspicionState) AccuserCount(subject types.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accusers[subject])
}

// MarkReported transitions subject's local state machine to reported.
// Returns false if it was already reported (idempotent, also the
// suppression point for repeat seed reports).
func (s *SuspicionState) MarkReported(subject types.Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reported[subject] {
		return false
	}
	s.reported[subject] = true
	return true
}

// IsReported reports whether subject has already reached the reported
// state for this observer.
func (s *SuspicionState) IsReported(subject types.Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported[subject]
}

// quorumNeighbors returns QN = floor(|NeighborSet|/2)+1, or 1 if the
// neighbor set is empty (spec section 4.5).
func (p *PeerNode) quorumNeighbors() int {
	n := p.neighbors.Size()
	if n == 0 {
		return 1
	}
	return n/2 + 1
}

// runPingLoop wakes every pingInterval and pings every current
// neighbor with a pingTimeout deadline, updating strikes and escalating
// into the consensus phase on threshold (spec section 4.5).
func (p *PeerNode) runPingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pingAllNeighbors()
		}
	}
}

func (p *PeerNode) pingAllNeighbors() {
	neighbors := p.neighbors.Snapshot()

	results := transport.FanOut(neighbors, func(ep types.Endpoint) error {
		var pong types.PongMessage
		return transport.SendRecv(ep, types.PingMessage{Type: types.KindPing}, &pong, pingTimeout)
	})

	for i, err := range results {
		ep := neighbors[i]
		if err == nil {
			p.suspicion.RecordSuccess(ep)
			continue
		}
		metrics.PingFailuresTotal.Inc()
		strikes := p.suspicion.RecordFailure(ep)
		if strikes == escalationThreshold {
			p.escalateSuspicion(ep)
		}
	}
}

// escalateSuspicion records self as an accuser of ep and broadcasts a
// suspicion_vote to every neighbor. A late-arriving quorum (accusers
// gathered before this peer itself escalated) can be reached
// immediately by this same call.
func (p *PeerNode) escalateSuspicion(ep types.Endpoint) {
	metrics.SuspicionEscalationsTotal.Inc()
	log.Printf("[%s] escalating suspicion of %s", p.self, ep)
	p.recordAccusationAndMaybeReport(ep, p.self)

	neighbors := p.neighbors.Snapshot()
	payload := types.SuspicionVoteMessage{
		Type:    types.KindSuspicionVote,
		Suspect: ep.Pair(),
		Voter:   p.self.Pair(),
	}
	results := transport.FanOut(neighbors, func(target types.Endpoint) error {
		return transport.Send(target, payload, transport.DefaultTimeout)
	})
	for i, err := range results {
		transport.LogTransportError("suspicion vote", neighbors[i], err)
	}
}

// handleSuspicionVote processes an inbound suspicion_vote: record the
// accusation (no rebroadcast — the vote graph is one-hop star per
// accuser) and report if quorum is now met.
func (p *PeerNode) handleSuspicionVote(suspect, voter types.Endpoint) {
	p.recordAccusationAndMaybeReport(suspect, voter)
}

// recordAccusationAndMaybeReport is the shared tally-and-report step
// used both when this peer escalates itself and when it merely
// receives another neighbor's vote — both paths must check quorum the
// same way so a late escalation can reach quorum immediately.
func (p *PeerNode) recordAccusationAndMaybeReport(subject, voter types.Endpoint) {
	if subject == p.self {
		return // a peer never escalates against itself
	}
	count := p.suspicion.AddAccuser(subject, voter)
	qn := p.quorumNeighbors()
	if count >= qn && p.suspicion.MarkReported(subject) {
		p.reportDeadNode(subject)
	}
}

// reportDeadNode sends a dead_node report for subject to every
// registered seed. The first transition to reported triggers exactly
// one report per observer; re-reports are still possible on later
// cycles if MarkReported's guard were bypassed, but it isn't, so this
// fires once per (observer, subject).
func (p *PeerNode) reportDeadNode(subject types.Endpoint) {
	log.Printf("[%s] consensus reached: reporting dead %s", p.self, subject)
	metrics.DeadReportsTotal.Inc()

	seeds := p.registeredSeeds()
	payload := types.DeadNodeMessage{
		Type:         types.KindDeadNode,
		DeadIP:       subject.Host,
		DeadPort:     subject.Port,
		ReporterIP:   p.self.Host,
		ReporterPort: p.self.Port,
	}
	results := transport.FanOut(seeds, func(ep types.Endpoint) error {
		return transport.Send(ep, payload, transport.DefaultTimeout)
	})
	for i, err := range results {
		transport.LogTransportError("dead_node report", seeds[i], err)
	}
}
