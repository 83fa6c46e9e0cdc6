package directory

import (
	"encoding/json"
	"log"
	"net"
	"sync"

	"github.com/quorumnet/overlay/internal/config"
	"github.com/quorumnet/overlay/internal/metrics"
	"github.com/quorumnet/overlay/internal/overlayerr"
	"github.com/quorumnet/overlay/internal/transport"
	"github.com/quorumnet/overlay/pkg/types"
)

// SeedNode is one member of the seed quorum. It accepts register,
// get_peers and dead_node requests from peers and register_vote /
// dead_vote fan-out from other seeds, and maintains the authoritative
// PeerDirectory via majority vote.
type SeedNode struct {
	self   types.Endpoint
	seeds  config.SeedConfig
	quorum int

	// mu guards registerVotes, deadVotes and directory together so the
	// tally-and-apply step is atomic: a vote insert and its quorum
	// check/apply happen under the same critical section, never split
	// across two locks (spec section 5/9).
	mu            sync.Mutex
	registerVotes *VoteLedger
	deadVotes     *VoteLedger
	directory     *PeerDirectory

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSeedNode constructs a seed bound to self, aware of the full static
// seed list.
func NewSeedNode(self types.Endpoint, seeds config.SeedConfig) *SeedNode {
	return &SeedNode{
		self:          self,
		seeds:         seeds,
		quorum:        seeds.Quorum(),
		registerVotes: NewVoteLedger(),
		deadVotes:     NewVoteLedger(),
		directory:     NewPeerDirectory(),
		stopCh:        make(chan struct{}),
	}
}

// Start binds the listener and begins accepting connections. The
// accept loop never performs application work itself — every accepted
// connection is handed to a new goroutine so a slow or stuck peer can
// never stall registration of another.
func (s *SeedNode) Start() error {
	ln, err := net.Listen("tcp", s.self.String())
	if err != nil {
		return overlayerr.ErrAddressInUse
	}
	s.listener = ln

	log.Printf("[SEED %s] started, quorum=%d", s.self, s.quorum)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, causing the accept loop to exit, and waits
// for in-flight handlers to finish (bounded by their own timeouts).
func (s *SeedNode) Stop() {
	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *SeedNode) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *SeedNode) handleConn(conn net.Conn) {
	defer conn.Close()

	corr := transport.NewCorrelationID()
	data, err := transport.ReadFrame(conn, transport.DefaultTimeout)
	if err != nil || data == nil {
		return
	}

	kind, err := transport.DecodeKind(data)
	if err != nil {
		log.Printf("[SEED %s] conn=%s decode error: %v", s.self, corr, err)
		return
	}

	switch kind {
	case types.KindRegister:
		var req types.RegisterRequest
		if json.Unmarshal(data, &req) != nil {
			return
		}
		peer := types.Endpoint{Host: req.IP, Port: req.Port}
		s.handleRegisterRequest(peer)
		transport.WriteReply(conn, types.RegisterResponse{Status: "pending"}, transport.DefaultTimeout)

	case types.KindRegisterVote:
		var vote types.VoteMessage
		if json.Unmarshal(data, &vote) != nil {
			return
		}
		peer, err1 := types.EndpointFromPair(vote.Peer[:])
		voter, err2 := types.EndpointFromPair(vote.Voter[:])
		if err1 != nil || err2 != nil {
			return
		}
		s.handleRegisterVote(peer, voter)

	case types.KindGetPeers:
		s.mu.Lock()
		snapshot := s.directory.Snapshot()
		s.mu.Unlock()

		peers := make([][2]any, len(snapshot))
		for i, ep := range snapshot {
			peers[i] = ep.Pair()
		}
		transport.WriteReply(conn, types.GetPeersResponse{Peers: peers}, transport.DefaultTimeout)

	case types.KindDeadNode:
		var req types.DeadNodeMessage
		if json.Unmarshal(data, &req) != nil {
			return
		}
		peer := types.Endpoint{Host: req.DeadIP, Port: req.DeadPort}
		s.handleDeadReport(peer)
		transport.WriteReply(conn, types.DeadNodeResponse{Status: "received"}, transport.DefaultTimeout)

	case types.KindDeadVote:
		var vote types.VoteMessage
		if json.Unmarshal(data, &vote) != nil {
			return
		}
		peer, err1 := types.EndpointFromPair(vote.Peer[:])
		voter, err2 := types.EndpointFromPair(vote.Voter[:])
		if err1 != nil || err2 != nil {
			return
		}
		s.handleDeadVote(peer, voter)

	default:
		// UnknownMessage: ignore silently.
	}
}

// broadcastToSeeds fans a vote payload out to every other configured
// seed. Transport failures are swallowed: the protocol tolerates up to
// |SeedConfig|-Q unreachable seeds per spec section 4.2.
func (s *SeedNode) broadcastToSeeds(payload any) {
	others := s.seeds.Others(s.self)
	results := transport.FanOut(others, func(ep types.Endpoint) error {
		return transport.Send(ep, payload, transport.DefaultTimeout)
	})
	for i, err := range results {
		transport.LogTransportError("vote fan-out", others[i], err)
	}
}

// handleRegisterRequest records the local vote, fans it out to peer
// seeds and checks for quorum, exactly mirroring the reference seed's
// handle_register_request.
func (s *SeedNode) handleRegisterRequest(peer types.Endpoint) {
	log.Printf("[SEED %s] registration proposal for %s", s.self, peer)

	s.mu.Lock()
	s.registerVotes.AddVoter(peer, s.self)
	votes := s.registerVotes.Count(peer)
	applied := false
	if votes >= s.quorum && s.directory.Add(peer) {
		applied = true
	}
	s.mu.Unlock()

	metrics.RegisterVotesTotal.WithLabelValues(peer.String()).Inc()
	if applied {
		metrics.DirectoryApplied.WithLabelValues("register").Inc()
		s.mu.Lock()
		size := s.directory.Size()
		s.mu.Unlock()
		metrics.DirectorySize.Set(float64(size))
		log.Printf("[SEED %s] peer REGISTERED via consensus: %s", s.self, peer)
	}

	s.broadcastToSeeds(types.VoteMessage{
		Type:  types.KindRegisterVote,
		Peer:  peer.Pair(),
		Voter: s.self.Pair(),
	})
}

// handleRegisterVote merges a vote received from a peer seed and
// re-checks the quorum tally. It does not re-broadcast, avoiding vote
// storms (spec section 4.2).
func (s *SeedNode) handleRegisterVote(peer, voter types.Endpoint) {
	s.mu.Lock()
	s.registerVotes.AddVoter(peer, voter)
	votes := s.registerVotes.Count(peer)
	applied := false
	if votes >= s.quorum && s.directory.Add(peer) {
		applied = true
	}
	size := s.directory.Size()
	s.mu.Unlock()

	metrics.RegisterVotesTotal.WithLabelValues(peer.String()).Inc()
	if applied {
		metrics.DirectoryApplied.WithLabelValues("register").Inc()
		metrics.DirectorySize.Set(float64(size))
		log.Printf("[SEED %s] peer REGISTERED via consensus: %s", s.self, peer)
	}
}

// handleDeadReport mirrors handleRegisterRequest for the death path.
func (s *SeedNode) handleDeadReport(peer types.Endpoint) {
	log.Printf("[SEED %s] dead node proposal for %s", s.self, peer)

	s.mu.Lock()
	s.deadVotes.AddVoter(peer, s.self)
	votes := s.deadVotes.Count(peer)
	applied := false
	if votes >= s.quorum && s.directory.Remove(peer) {
		applied = true
	}
	size := s.directory.Size()
	s.mu.Unlock()

	metrics.DeadVotesTotal.WithLabelValues(peer.String()).Inc()
	if applied {
		metrics.DirectoryApplied.WithLabelValues("dead").Inc()
		metrics.DirectorySize.Set(float64(size))
		log.Printf("[SEED %s] peer REMOVED via consensus: %s", s.self, peer)
	}

	s.broadcastToSeeds(types.VoteMessage{
		Type:  types.KindDeadVote,
		Peer:  peer.Pair(),
		Voter: s.self.Pair(),
	})
}

// handleDeadVote merges a peer-seed dead vote and re-checks quorum.
func (s *SeedNode) handleDeadVote(peer, voter types.Endpoint) {
	s.mu.Lock()
	s.deadVotes.AddVoter(peer, voter)
	votes := s.deadVotes.Count(peer)
	applied := false
	if votes >= s.quorum && s.directory.Remove(peer) {
		applied = true
	}
	size := s.directory.Size()
	s.mu.Unlock()

	metrics.DeadVotesTotal.WithLabelValues(peer.String()).Inc()
	if applied {
		metrics.DirectoryApplied.WithLabelValues("dead").Inc()
		metrics.DirectorySize.Set(float64(size))
		log.Printf("[SEED %s] peer REMOVED via consensus: %s", s.self, peer)
	}
}

// Snapshot returns a consistent point-in-time view of the directory and
// both vote ledgers, for the admin surface. Taken under the same lock
// used by the protocol path.
func (s *SeedNode) Snapshot() (peers []types.Endpoint, registerVotes, deadVotes map[types.Endpoint]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.Snapshot(), s.registerVotes.Snapshot(), s.deadVotes.Snapshot()
}

// Self returns this seed's own endpoint.
func (s *SeedNode) Self() types.Endpoint { return s.self }

// Quorum returns the configured seed quorum Q.
func (s *SeedNode) Quorum() int { return s.quorum }
