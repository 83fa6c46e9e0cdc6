// Package metrics instruments the overlay with Prometheus counters and
// gauges. Instrumentation is write-only from the protocol's point of
// view: nothing in directory/peer packages reads a metric back, so it
// cannot influence correctness, only observability.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RegisterVotesTotal counts register votes recorded by a seed,
	// whether self-cast or received via fan-out.
	RegisterVotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_register_votes_total",
		Help: "Register votes recorded per subject endpoint.",
	}, []string{"subject"})

	// DeadVotesTotal counts dead-node votes recorded by a seed.
	DeadVotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_dead_votes_total",
		Help: "Dead-node votes recorded per subject endpoint.",
	}, []string{"subject"})

	// DirectoryApplied counts register/dead transitions actually
	// applied to the peer directory (i.e. quorum was reached).
	DirectoryApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_directory_transitions_total",
		Help: "Directory transitions applied after reaching quorum.",
	}, []string{"kind"}) // kind = "register" | "dead"

	// DirectorySize tracks the current size of a seed's peer directory.
	DirectorySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overlay_directory_size",
		Help: "Current number of peers in this seed's directory.",
	})

	// GossipReceivedTotal counts distinct (post-dedup) gossip messages
	// accepted by a peer.
	GossipReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_gossip_received_total",
		Help: "Distinct gossip messages accepted after de-duplication.",
	})

	// GossipOriginatedTotal counts self-originated gossip messages sent.
	GossipOriginatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_gossip_originated_total",
		Help: "Self-originated gossip messages broadcast.",
	})

	// NeighborCount tracks the current size of a peer's neighbor set.
	NeighborCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overlay_neighbor_count",
		Help: "Current number of neighbors in this peer's neighbor set.",
	})

	// PingFailuresTotal counts ping timeouts/errors against neighbors.
	PingFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_ping_failures_total",
		Help: "Ping failures observed against any neighbor.",
	})

	// SuspicionEscalationsTotal counts transitions into the consensus
	// (accusing) phase.
	SuspicionEscalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_suspicion_escalations_total",
		Help: "Escalations from ping-failure strikes into the consensus phase.",
	})

	// DeadReportsTotal counts dead_node reports sent to seeds.
	DeadReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_dead_reports_total",
		Help: "dead_node reports sent to registered seeds.",
	})
)

// NewSeedRegistry returns a fresh, process-local Prometheus registry
// carrying the seed-side metrics; together with NewPeerRegistry this
// lets seed and peer binaries each expose only the metrics relevant to
// them.
func NewSeedRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(RegisterVotesTotal, DeadVotesTotal, DirectoryApplied, DirectorySize)
	return r
}

// NewPeerRegistry returns a registry carrying the peer-side metrics.
func NewPeerRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		GossipReceivedTotal, GossipOriginatedTotal, NeighborCount,
		PingFailuresTotal, SuspicionEscalationsTotal, DeadReportsTotal,
	)
	return r
}
