package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/quorumnet/overlay/internal/directory"
	"github.com/quorumnet/overlay/internal/metrics"
	"github.com/quorumnet/overlay/internal/peer"
	"github.com/quorumnet/overlay/pkg/types"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// NewSeedServer builds the admin surface for a seed process: directory
// size and members, and the two vote ledgers.
func NewSeedServer(node *directory.SeedNode) *Server {
	s := newServer(metrics.NewSeedRegistry())

	s.router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		peers, registerVotes, deadVotes := node.Snapshot()
		writeJSON(w, seedStatusResponse{
			Self:          node.Self().String(),
			Quorum:        node.Quorum(),
			Uptime:        s.Uptime().String(),
			DirectorySize: len(peers),
			Peers:         endpointStrings(peers),
			RegisterVotes: voteCounts(registerVotes),
			DeadVotes:     voteCounts(deadVotes),
		})
	}).Methods("GET")

	s.router.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		peers, _, _ := node.Snapshot()
		writeJSON(w, map[string]any{"peers": endpointStrings(peers), "count": len(peers)})
	}).Methods("GET")

	s.router.HandleFunc("/votes/register", func(w http.ResponseWriter, r *http.Request) {
		_, registerVotes, _ := node.Snapshot()
		writeJSON(w, map[string]any{"votes": voteCounts(registerVotes)})
	}).Methods("GET")

	s.router.HandleFunc("/votes/dead", func(w http.ResponseWriter, r *http.Request) {
		_, _, deadVotes := node.Snapshot()
		writeJSON(w, map[string]any{"votes": voteCounts(deadVotes)})
	}).Methods("GET")

	return s
}

// NewPeerServer builds the admin surface for a peer process: neighbor
// set, registered seeds, and uptime.
func NewPeerServer(node *peer.PeerNode) *Server {
	s := newServer(metrics.NewPeerRegistry())

	s.router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, peerStatusResponse{
			Self:            node.Self().String(),
			Uptime:          s.Uptime().String(),
			Neighbors:       endpointStrings(node.Neighbors().Snapshot()),
			NeighborCount:   node.Neighbors().Size(),
			RegisteredSeeds: endpointStrings(node.RegisteredSeedsSnapshot()),
		})
	}).Methods("GET")

	s.router.HandleFunc("/neighbors", func(w http.ResponseWriter, r *http.Request) {
		neighbors := node.Neighbors().Snapshot()
		writeJSON(w, map[string]any{"neighbors": endpointStrings(neighbors), "count": len(neighbors)})
	}).Methods("GET")

	return s
}

type seedStatusResponse struct {
	Self          string         `json:"self"`
	Quorum        int            `json:"quorum"`
	Uptime        string         `json:"uptime"`
	DirectorySize int            `json:"directory_size"`
	Peers         []string       `json:"peers"`
	RegisterVotes map[string]int `json:"register_votes"`
	DeadVotes     map[string]int `json:"dead_votes"`
}

type peerStatusResponse struct {
	Self            string   `json:"self"`
	Uptime          string   `json:"uptime"`
	Neighbors       []string `json:"neighbors"`
	NeighborCount   int      `json:"neighbor_count"`
	RegisteredSeeds []string `json:"registered_seeds"`
}

func endpointStrings(eps []types.Endpoint) []string {
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.String()
	}
	return out
}

func voteCounts(votes map[types.Endpoint]int) map[string]int {
	out := make(map[string]int, len(votes))
	for ep, count := range votes {
		out[ep.String()] = count
	}
	return out
}
