// Package types holds the wire-level vocabulary shared by the seed
// directory and the peer overlay: endpoints, message kinds and their
// payload shapes.
package types

import "fmt"

// Endpoint identifies a process by host and port. It is the stable
// identity of both peers and seeds and is comparable, so it can be used
// directly as a map key.
type Endpoint struct {
	Host string `json:"ip"`
	Port int    `json:"port"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Pair renders the endpoint as the 2-element [host, port] array shape
// used inside payloads (register_vote, suspicion_vote, ...).
func (e Endpoint) Pair() [2]any {
	return [2]any{e.Host, e.Port}
}

// EndpointFromPair decodes the 2-element [host, port] array shape back
// into an Endpoint. Accepts either a float64 (from JSON numbers) or an
// int for the port element.
func EndpointFromPair(pair []any) (Endpoint, error) {
	if len(pair) != 2 {
		return Endpoint{}, fmt.Errorf("types: expected 2-element endpoint pair, got %d", len(pair))
	}
	host, ok := pair[0].(string)
	if !ok {
		return Endpoint{}, fmt.Errorf("types: endpoint host is not a string")
	}
	var port int
	switch p := pair[1].(type) {
	case float64:
		port = int(p)
	case int:
		port = p
	default:
		return Endpoint{}, fmt.Errorf("types: endpoint port has unexpected type %T", pair[1])
	}
	return Endpoint{Host: host, Port: port}, nil
}

// MessageKind enumerates the closed set of frame types the transport
// understands. Unknown kinds are ignored by dispatch rather than
// rejected, per the UnknownMessage error policy.
type MessageKind string

const (
	KindRegister      MessageKind = "register"
	KindRegisterVote  MessageKind = "register_vote"
	KindGetPeers      MessageKind = "get_peers"
	KindPeerInfo      MessageKind = "peer_info"
	KindGossip        MessageKind = "gossip"
	KindPing          MessageKind = "ping"
	KindSuspicionVote MessageKind = "suspicion_vote"
	KindDeadNode      MessageKind = "dead_node"
	KindDeadVote      MessageKind = "dead_vote"
)

// Envelope is the generic shape every frame is first decoded into, so
// the dispatcher can read the "type" tag before committing to a
// payload-specific struct.
type Envelope struct {
	Type MessageKind `json:"type"`
}

// RegisterRequest is sent by a peer to a seed to request directory
// membership.
type RegisterRequest struct {
	Type MessageKind `json:"type"`
	IP   string      `json:"ip"`
	Port int         `json:"port"`
}

// RegisterResponse acknowledges a register request; registration is
// asynchronous (quorum based), so the reply only ever means "received".
type RegisterResponse struct {
	Status string `json:"status"`
}

// VoteMessage carries a register_vote or dead_vote fan-out between
// seeds: the subject being voted on and the voter casting the vote.
type VoteMessage struct {
	Type   MessageKind `json:"type"`
	Peer   [2]any      `json:"peer"`
	Voter  [2]any      `json:"voter"`
}

// GetPeersRequest requests a directory snapshot from a seed.
type GetPeersRequest struct {
	Type MessageKind `json:"type"`
}

// GetPeersResponse returns the seed's current directory snapshot.
type GetPeersResponse struct {
	Peers [][2]any `json:"peers"`
}

// PeerInfoMessage is the peer_info handshake: "I consider you a
// neighbor", sent with no reply expected.
type PeerInfoMessage struct {
	Type MessageKind `json:"type"`
	IP   string      `json:"ip"`
	Port int         `json:"port"`
}

// GossipMessage carries one application payload for epidemic
// dissemination.
type GossipMessage struct {
	Type    MessageKind `json:"type"`
	Message string      `json:"message"`
}

// PingMessage is an empty liveness probe.
type PingMessage struct {
	Type MessageKind `json:"type"`
}

// PongMessage is the liveness probe's reply.
type PongMessage struct {
	Type string `json:"type"`
}

// SuspicionVoteMessage announces that voter accuses suspect of being
// unreachable.
type SuspicionVoteMessage struct {
	Type    MessageKind `json:"type"`
	Suspect [2]any      `json:"suspect"`
	Voter   [2]any      `json:"voter"`
}

// DeadNodeMessage is a peer's report to a seed that dead has failed
// local-quorum liveness consensus.
type DeadNodeMessage struct {
	Type         MessageKind `json:"type"`
	DeadIP       string      `json:"dead_ip"`
	DeadPort     int         `json:"dead_port"`
	ReporterIP   string      `json:"reporter_ip"`
	ReporterPort int         `json:"reporter_port"`
}

// DeadNodeResponse acknowledges receipt of a dead_node report.
type DeadNodeResponse struct {
	Status string `json:"status"`
}
