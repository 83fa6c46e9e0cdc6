package types

import "testing"

func TestEndpointString(t *testing.T) {
	ep := Endpoint{Host: "127.0.0.1", Port: 6001}
	if got := ep.String(); got != "127.0.0.1:6001" {
		t.Errorf("String() = %q, want %q", got, "127.0.0.1:6001")
	}
}

func TestEndpointPairRoundTrip(t *testing.T) {
	ep := Endpoint{Host: "10.0.0.5", Port: 7001}
	pair := ep.Pair()

	got, err := EndpointFromPair(pair[:])
	if err != nil {
		t.Fatalf("EndpointFromPair: %v", err)
	}
	if got != ep {
		t.Errorf("round trip = %+v, want %+v", got, ep)
	}
}

func TestEndpointFromPairAcceptsFloat64Port(t *testing.T) {
	// JSON numbers decode into float64 when the target is `any`, so a
	// pair crossing the wire looks like this rather than carrying an int.
	pair := []any{"192.168.1.1", float64(9001)}

	got, err := EndpointFromPair(pair)
	if err != nil {
		t.Fatalf("EndpointFromPair: %v", err)
	}
	want := Endpoint{Host: "192.168.1.1", Port: 9001}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEndpointFromPairRejectsWrongLength(t *testing.T) {
	if _, err := EndpointFromPair([]any{"only-one"}); err == nil {
		t.Error("expected error for short pair")
	}
}

func TestEndpointFromPairRejectsNonStringHost(t *testing.T) {
	if _, err := EndpointFromPair([]any{123, 80}); err == nil {
		t.Error("expected error for non-string host")
	}
}

func TestEndpointComparable(t *testing.T) {
	a := Endpoint{Host: "h", Port: 1}
	b := Endpoint{Host: "h", Port: 1}
	m := map[Endpoint]struct{}{a: {}}
	if _, ok := m[b]; !ok {
		t.Error("equal endpoints should collide as map keys")
	}
}
