package peer

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/quorumnet/overlay/internal/config"
	"github.com/quorumnet/overlay/internal/metrics"
	"github.com/quorumnet/overlay/internal/transport"
	"github.com/quorumnet/overlay/pkg/types"
)

// originatorMessageCount is M in spec section 4.4: the bounded number
// of self-originated messages a peer broadcasts at startup.
const originatorMessageCount = 10

// originatorInterval is the cadence between self-originated broadcasts.
const originatorInterval = 5 * time.Second

// listenerSettleDelay gives the listener a moment to come up before
// registration, and registerSettleDelay gives register votes a moment to fan out before
// fetching peers — matching the reference implementation's fixed
// sleep(1)/sleep(2) bootstrap pacing.
const (
	listenerSettleDelay  = 1 * time.Second
	registerSettleDelay  = 2 * time.Second
)

// PeerNode is one participant in the overlay: it registers with a
// majority of seeds, discovers and gossips with other peers, and runs
// the local failure detector.
type PeerNode struct {
	self  types.Endpoint
	seeds config.SeedConfig

	registeredMu sync.Mutex
	registered   map[types.Endpoint]struct{}

	neighbors  *NeighborSet
	seen       *SeenMessages
	suspicion  *SuspicionState

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup

	runningMu sync.RWMutex
	running   bool
}

// NewPeerNode constructs a peer bound to self, aware of the full
// static seed list.
func NewPeerNode(self types.Endpoint, seeds config.SeedConfig) *PeerNode {
	return &PeerNode{
		self:       self,
		seeds:      seeds,
		registered: make(map[types.Endpoint]struct{}),
		neighbors:  NewNeighborSet(self),
		seen:       NewSeenMessages(),
		suspicion:  NewSuspicionState(),
		stopCh:     make(chan struct{}),
		running:    true,
	}
}

func (p *PeerNode) isRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// Self returns this peer's own endpoint.
func (p *PeerNode) Self() types.Endpoint { return p.self }

// Neighbors exposes the neighbor set for the admin surface.
func (p *PeerNode) Neighbors() *NeighborSet { return p.neighbors }

// RegisteredSeedsSnapshot exposes a snapshot of registered seeds for the admin
// surface.
func (p *PeerNode) RegisteredSeedsSnapshot() []types.Endpoint { return p.registeredSeeds() }

func (p *PeerNode) registeredSeeds() []types.Endpoint {
	p.registeredMu.Lock()
	defer p.registeredMu.Unlock()
	out := make([]types.Endpoint, 0, len(p.registered))
	for ep := range p.registered {
		out = append(out, ep)
	}
	return out
}

func (p *PeerNode) addRegisteredSeed(ep types.Endpoint) {
	p.registeredMu.Lock()
	defer p.registeredMu.Unlock()
	p.registered[ep] = struct{}{}
}

// Run executes the full bootstrap control flow described in spec
// section 2: start listener, register with a seed majority, fetch and
// select neighbors, start the ping loop, then originate a bounded
// number of gossip messages before idling until shutdown.
func (p *PeerNode) Run() error {
	if err := p.startListener(); err != nil {
		return err
	}

	time.Sleep(listenerSettleDelay)
	p.registerWithSeeds()

	time.Sleep(registerSettleDelay)
	p.fetchAndConnectPeers()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runPingLoop()
	}()

	p.runOriginator()

	<-p.stopCh
	return nil
}

// Stop signals shutdown: the accept loop, ping loop and originator
// loop all observe stopCh and exit; in-flight handlers run to
// completion within their own timeouts.
func (p *PeerNode) Stop() {
	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()

	close(p.stopCh)
	if p.listener != nil {
		p.listener.Close()
	}
	p.wg.Wait()
}

func (p *PeerNode) startListener() error {
	ln, err := net.Listen("tcp", p.self.String())
	if err != nil {
		return fmt.Errorf("peer: listen %s: %w", p.self, err)
	}
	p.listener = ln
	log.Printf("[%s] peer listener started", p.self)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.acceptLoop()
	}()
	return nil
}

func (p *PeerNode) acceptLoop() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
				continue
			}
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handleConn(conn)
		}()
	}
}

func (p *PeerNode) handleConn(conn net.Conn) {
	defer conn.Close()

	data, err := transport.ReadFrame(conn, transport.DefaultTimeout)
	if err != nil || data == nil {
		return
	}

	kind, err := transport.DecodeKind(data)
	if err != nil {
		return
	}

	switch kind {
	case types.KindPeerInfo:
		var msg types.PeerInfoMessage
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		ep := types.Endpoint{Host: msg.IP, Port: msg.Port}
		if p.neighbors.Add(ep) {
			metrics.NeighborCount.Set(float64(p.neighbors.Size()))
		}

	case types.KindGossip:
		var msg types.GossipMessage
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		remote, ok := conn.RemoteAddr().(*net.TCPAddr)
		from := types.Endpoint{}
		if ok {
			from = types.Endpoint{Host: remote.IP.String(), Port: remote.Port}
		}
		p.handleGossip(msg.Message, from)

	case types.KindPing:
		transport.WriteReply(conn, types.PongMessage{Type: "pong"}, transport.DefaultTimeout)
		log.Printf("[%s] ping received from %s", p.self, conn.RemoteAddr())

	case types.KindSuspicionVote:
		var msg types.SuspicionVoteMessage
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		suspect, err1 := types.EndpointFromPair(msg.Suspect[:])
		voter, err2 := types.EndpointFromPair(msg.Voter[:])
		if err1 != nil || err2 != nil {
			return
		}
		p.handleSuspicionVote(suspect, voter)

	default:
		// UnknownMessage: ignore silently.
	}
}

// registerWithSeeds selects a random majority subset of the configured
// seeds and sends a register request to each, recording successes in
// RegisteredSeeds (spec section 4.3).
func (p *PeerNode) registerWithSeeds() {
	selected := selectMajority(p.seeds.Seeds)

	for _, seed := range selected {
		var reply types.RegisterResponse
		err := transport.SendRecv(seed, types.RegisterRequest{
			Type: types.KindRegister,
			IP:   p.self.Host,
			Port: p.self.Port,
		}, &reply, transport.DefaultTimeout)

		if err != nil {
			log.Printf("[%s] seed register failed %s: %v", p.self, seed, err)
			continue
		}
		p.addRegisteredSeed(seed)
		log.Printf("[%s] registration sent to seed %s", p.self, seed)
	}
}

// selectMajority returns a random subset of size floor(n/2)+1 from
// seeds.
func selectMajority(seeds []types.Endpoint) []types.Endpoint {
	n := len(seeds)
	k := n/2 + 1
	if k > n {
		k = n
	}

	shuffled := make([]types.Endpoint, n)
	copy(shuffled, seeds)
	rand.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:k]
}

// fetchAndConnectPeers queries get_peers from every registered seed,
// unions the results, applies power-law neighbor selection, and sends
// peer_info to each chosen endpoint (spec section 4.3).
func (p *PeerNode) fetchAndConnectPeers() {
	seeds := p.registeredSeeds()

	unionMu := sync.Mutex{}
	union := make(map[types.Endpoint]struct{})

	transport.FanOut(seeds, func(seed types.Endpoint) error {
		var reply types.GetPeersResponse
		err := transport.SendRecv(seed, types.GetPeersRequest{Type: types.KindGetPeers}, &reply, transport.DefaultTimeout)
		if err != nil {
			return err
		}
		unionMu.Lock()
		for _, pair := range reply.Peers {
			ep, perr := types.EndpointFromPair(pair[:])
			if perr == nil {
				union[ep] = struct{}{}
			}
		}
		unionMu.Unlock()
		return nil
	})

	candidates := make([]types.Endpoint, 0, len(union))
	for ep := range union {
		candidates = append(candidates, ep)
	}

	selected := SelectPowerLaw(candidates)
	p.connectToPeers(selected)

	log.Printf("[%s] peer list obtained: %v", p.self, selected)
}

// connectToPeers sends a peer_info handshake to each candidate and, on
// success, adds it to the neighbor set. Self is filtered before the
// handshake (spec section 4.3).
func (p *PeerNode) connectToPeers(candidates []types.Endpoint) {
	targets := candidates[:0:0]
	for _, ep := range candidates {
		if ep != p.self {
			targets = append(targets, ep)
		}
	}

	results := transport.FanOut(targets, func(ep types.Endpoint) error {
		return transport.Send(ep, types.PeerInfoMessage{
			Type: types.KindPeerInfo,
			IP:   p.self.Host,
			Port: p.self.Port,
		}, transport.DefaultTimeout)
	})

	for i, err := range results {
		ep := targets[i]
		if err != nil {
			transport.LogTransportError("peer_info handshake", ep, err)
			continue
		}
		if p.neighbors.Add(ep) {
			metrics.NeighborCount.Set(float64(p.neighbors.Size()))
		}
	}
}

// originatorPayload builds the i-th self-originated gossip payload: an
// originator tag plus a monotonically increasing counter, so it is
// self-unique per originator (spec section 4.4).
func (p *PeerNode) originatorPayload(i int) string {
	return fmt.Sprintf("%d:%s:%d", time.Now().UnixNano(), p.self.Host, i)
}
