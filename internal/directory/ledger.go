// Package directory implements the seed side of the protocol: the
// quorum-replicated peer directory and the register/dead vote ledgers
// that guard mutation of it.
package directory

import "github.com/quorumnet/overlay/pkg/types"

// VoteLedger maps a subject endpoint to the set of distinct seed
// voters that have voted for some transition (registration or death)
// concerning it. Votes are monotonic: AddVoter only ever grows the set,
// enforcing "each seed votes at most once per (kind, subject)" via map
// set semantics.
//
// VoteLedger carries no lock of its own — callers (SeedNode) serialize
// access together with the PeerDirectory mutation it gates, so the
// tally-and-apply step is atomic with the vote insert.
type VoteLedger struct {
	votes map[types.Endpoint]map[types.Endpoint]struct{}
}

// NewVoteLedger returns an empty ledger.
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{votes: make(map[types.Endpoint]map[types.Endpoint]struct{})}
}

// AddVoter records that voter has voted for subject. Returns true if
// this voter had not already voted for this subject.
func (l *VoteLedger) AddVoter(subject, voter types.Endpoint) bool {
	set, ok := l.votes[subject]
	if !ok {
		set = make(map[types.Endpoint]struct{})
		l.votes[subject] = set
	}
	if _, already := set[voter]; already {
		return false
	}
	set[voter] = struct{}{}
	return true
}

// Count returns the number of distinct voters recorded for subject.
func (l *VoteLedger) Count(subject types.Endpoint) int {
	return len(l.votes[subject])
}

// Voters returns a snapshot of the voter set for subject.
func (l *VoteLedger) Voters(subject types.Endpoint) []types.Endpoint {
	set := l.votes[subject]
	out := make([]types.Endpoint, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// Forget drops the ledger entry for subject. Correctness never
// requires this (votes may accumulate indefinitely without harm) but it
// bounds memory once a transition has been applied and is no longer
// contested.
func (l *VoteLedger) Forget(subject types.Endpoint) {
	delete(l.votes, subject)
}

// Snapshot returns every subject currently tracked with its voter
// count, for the admin surface.
func (l *VoteLedger) Snapshot() map[types.Endpoint]int {
	out := make(map[types.Endpoint]int, len(l.votes))
	for subject, voters := range l.votes {
		out[subject] = len(voters)
	}
	return out
}

// PeerDirectory is the set of endpoints a seed considers live. An
// endpoint appears at most once (map set semantics) and is mutated only
// through Add/Remove, which the seed calls after a vote ledger reaches
// quorum.
type PeerDirectory struct {
	peers map[types.Endpoint]struct{}
}

// NewPeerDirectory returns an empty directory.
func NewPeerDirectory() *PeerDirectory {
	return &PeerDirectory{peers: make(map[types.Endpoint]struct{})}
}

// Contains reports whether ep is currently in the directory.
func (d *PeerDirectory) Contains(ep types.Endpoint) bool {
	_, ok := d.peers[ep]
	return ok
}

// Add inserts ep. Returns false if it was already present (no-op, for
// idempotence).
func (d *PeerDirectory) Add(ep types.Endpoint) bool {
	if d.Contains(ep) {
		return false
	}
	d.peers[ep] = struct{}{}
	return true
}

// Remove deletes ep. Returns false if it was not present.
func (d *PeerDirectory) Remove(ep types.Endpoint) bool {
	if !d.Contains(ep) {
		return false
	}
	delete(d.peers, ep)
	return true
}

// Snapshot returns a copy of the current directory contents.
func (d *PeerDirectory) Snapshot() []types.Endpoint {
	out := make([]types.Endpoint, 0, len(d.peers))
	for ep := range d.peers {
		out = append(out, ep)
	}
	return out
}

// Size returns the number of peers currently in the directory.
func (d *PeerDirectory) Size() int {
	return len(d.peers)
}
