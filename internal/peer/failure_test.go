package peer

import "testing"

func TestSuspicionStateRecordFailureIncrements(t *testing.T) {
	s := NewSuspicionState()
	target := endpoint(7001)

	if got := s.RecordFailure(target); got != 1 {
		t.Errorf("first RecordFailure = %d, want 1", got)
	}
	if got := s.RecordFailure(target); got != 2 {
		t.Errorf("second RecordFailure = %d, want 2", got)
	}
}

func TestSuspicionStateRecordSuccessResets(t *testing.T) {
	s := NewSuspicionState()
	target := endpoint(7001)

	s.RecordFailure(target)
	s.RecordFailure(target)
	s.RecordSuccess(target)

	if got := s.Strikes(target); got != 0 {
		t.Errorf("Strikes() after RecordSuccess = %d, want 0", got)
	}
}

func TestSuspicionStateEscalationThreshold(t *testing.T) {
	s := NewSuspicionState()
	target := endpoint(7001)

	var strikes int
	for i := 0; i < escalationThreshold; i++ {
		strikes = s.RecordFailure(target)
	}
	if strikes != escalationThreshold {
		t.Errorf("strikes after %d failures = %d, want %d", escalationThreshold, strikes, escalationThreshold)
	}
}

func TestSuspicionStateAddAccuserCounts(t *testing.T) {
	s := NewSuspicionState()
	subject := endpoint(7001)

	c1 := s.AddAccuser(subject, endpoint(6001))
	c2 := s.AddAccuser(subject, endpoint(6002))
	c3 := s.AddAccuser(subject, endpoint(6001)) // repeat voter, must not double count

	if c1 != 1 || c2 != 2 || c3 != 2 {
		t.Errorf("accuser counts = %d, %d, %d, want 1, 2, 2", c1, c2, c3)
	}
	if got := s.AccuserCount(subject); got != 2 {
		t.Errorf("AccuserCount() = %d, want 2", got)
	}
}

func TestSuspicionStateMarkReportedOnce(t *testing.T) {
	s := NewSuspicionState()
	subject := endpoint(7001)

	if !s.MarkReported(subject) {
		t.Error("first MarkReported should succeed")
	}
	if s.MarkReported(subject) {
		t.Error("second MarkReported should be suppressed")
	}
	if !s.IsReported(subject) {
		t.Error("IsReported should be true after MarkReported")
	}
}

func TestQuorumNeighborsEmptyIsOne(t *testing.T) {
	p := &PeerNode{self: endpoint(7001), neighbors: NewNeighborSet(endpoint(7001))}
	if got := p.quorumNeighbors(); got != 1 {
		t.Errorf("quorumNeighbors() with no neighbors = %d, want 1", got)
	}
}

func TestQuorumNeighborsMajority(t *testing.T) {
	self := endpoint(7001)
	n := NewNeighborSet(self)
	n.Add(endpoint(7002))
	n.Add(endpoint(7003))
	n.Add(endpoint(7004))

	p := &PeerNode{self: self, neighbors: n}
	if got := p.quorumNeighbors(); got != 2 {
		t.Errorf("quorumNeighbors() with 3 neighbors = %d, want 2", got)
	}
}

// TestLateEscalationReachesQuorumImmediately exercises the shared
// accusation path: accusers gathered before this peer's own escalation
// must already count when it finally escalates, so quorum can be
// reached by that same call rather than needing a further vote.
func TestLateEscalationReachesQuorumImmediately(t *testing.T) {
	self := endpoint(7001)
	subject := endpoint(7999)
	n := NewNeighborSet(self)
	n.Add(endpoint(7002))
	n.Add(endpoint(7003)) // quorumNeighbors() = 2

	p := &PeerNode{
		self:      self,
		neighbors: n,
		suspicion: NewSuspicionState(),
	}

	// One neighbor already accused subject before self escalates.
	p.recordAccusationAndMaybeReport(subject, endpoint(7002))
	if p.suspicion.IsReported(subject) {
		t.Fatal("should not be reported yet with only one accuser")
	}

	// Self escalates now; this is the second, quorum-reaching accuser.
	p.recordAccusationAndMaybeReport(subject, self)
	if !p.suspicion.IsReported(subject) {
		t.Error("subject should be reported once quorum is reached, even on the escalating call")
	}
}

func TestRecordAccusationIgnoresSelfAsSubject(t *testing.T) {
	self := endpoint(7001)
	p := &PeerNode{
		self:      self,
		neighbors: NewNeighborSet(self),
		suspicion: NewSuspicionState(),
	}

	p.recordAccusationAndMaybeReport(self, endpoint(7002))
	if p.suspicion.AccuserCount(self) != 0 {
		t.Error("a peer must never accumulate accusations against itself")
	}
}
