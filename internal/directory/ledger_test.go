package directory

import (
	"sync"
	"testing"

	"github.com/quorumnet/overlay/pkg/types"
)

func ep(port int) types.Endpoint {
	return types.Endpoint{Host: "127.0.0.1", Port: port}
}

func TestVoteLedgerAddVoterIsSetLike(t *testing.T) {
	l := NewVoteLedger()
	subject := ep(7001)
	voter := ep(6001)

	if !l.AddVoter(subject, voter) {
		t.Error("first AddVoter should report newly added")
	}
	if l.AddVoter(subject, voter) {
		t.Error("repeated AddVoter from the same voter should not double count")
	}
	if got := l.Count(subject); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestVoteLedgerDistinctVotersAccumulate(t *testing.T) {
	l := NewVoteLedger()
	subject := ep(7001)

	l.AddVoter(subject, ep(6001))
	l.AddVoter(subject, ep(6002))
	l.AddVoter(subject, ep(6003))

	if got := l.Count(subject); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestVoteLedgerForget(t *testing.T) {
	l := NewVoteLedger()
	subject := ep(7001)
	l.AddVoter(subject, ep(6001))
	l.Forget(subject)
	if got := l.Count(subject); got != 0 {
		t.Errorf("Count() after Forget = %d, want 0", got)
	}
}

func TestPeerDirectoryAddRemove(t *testing.T) {
	d := NewPeerDirectory()
	p := ep(7001)

	if !d.Add(p) {
		t.Error("first Add should return true")
	}
	if d.Add(p) {
		t.Error("duplicate Add should return false")
	}
	if !d.Contains(p) {
		t.Error("directory should contain p after Add")
	}
	if !d.Remove(p) {
		t.Error("first Remove should return true")
	}
	if d.Remove(p) {
		t.Error("duplicate Remove should return false")
	}
	if d.Contains(p) {
		t.Error("directory should not contain p after Remove")
	}
}

// TestSeedNodeConcurrentVotesApplyExactlyOnce runs, over a SeedNode's
// own mutex, ledger and directory, the same lock/AddVoter/Count/Add
// sequence the seed's vote handlers use (inline here rather than through
// those handlers): many goroutines cast the same subject's register vote
// from distinct voters concurrently, and the directory must flip to
// "present" exactly once regardless of interleaving.
func TestSeedNodeConcurrentVotesApplyExactlyOnce(t *testing.T) {
	self := ep(6001)
	seeds := []types.Endpoint{self, ep(6002), ep(6003), ep(6004), ep(6005)}
	node := &SeedNode{
		self:          self,
		quorum:        3,
		registerVotes: NewVoteLedger(),
		deadVotes:     NewVoteLedger(),
		directory:     NewPeerDirectory(),
	}

	subject := ep(7001)
	var appliedCount int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, voter := range seeds {
		wg.Add(1)
		go func(voter types.Endpoint) {
			defer wg.Done()
			node.mu.Lock()
			node.registerVotes.AddVoter(subject, voter)
			votes := node.registerVotes.Count(subject)
			applied := votes >= node.quorum && node.directory.Add(subject)
			node.mu.Unlock()

			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}(voter)
	}
	wg.Wait()

	if appliedCount != 1 {
		t.Errorf("directory transition applied %d times, want exactly 1", appliedCount)
	}
	if !node.directory.Contains(subject) {
		t.Error("subject should be present in the directory after quorum")
	}
}
