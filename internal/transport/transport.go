// Package transport implements the one-frame-per-connection JSON
// exchange described in spec section 4.1: every message is sent over a
// fresh TCP connection, reads and writes are timeout-bounded, and the
// transport itself never retries or reorders — callers treat any I/O
// failure as "message not delivered" and move on.
package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorumnet/overlay/internal/overlayerr"
	"github.com/quorumnet/overlay/pkg/types"
)

// DefaultTimeout bounds connect/write operations per spec section 4.1
// (2-5s). Callers on the ping path use a tighter timeout of their own.
const DefaultTimeout = 5 * time.Second

// maxFrameBytes bounds a single read, since the wire format carries no
// length framing (spec section 6).
const maxFrameBytes = 4096

// Dial opens a fresh connection to ep bounded by timeout. The caller
// owns closing it.
func Dial(ep types.Endpoint, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", ep.String(), timeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", ep, err)
	}
	return conn, nil
}

// Send opens a connection to ep, writes payload as a single JSON frame
// and closes the connection. No reply is read. Any failure is reported
// to the caller, which per spec policy should swallow it and treat the
// message as not delivered.
func Send(ep types.Endpoint, payload any, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", ep.String(), timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(timeout))
	return json.NewEncoder(conn).Encode(payload)
}

// SendRecv opens a connection to ep, writes payload, reads a single
// reply frame bounded to maxFrameBytes and decodes it into reply.
func SendRecv(ep types.Endpoint, payload any, reply any, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", ep.String(), timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))
	if err := json.NewEncoder(conn).Encode(payload); err != nil {
		return err
	}

	buf := make([]byte, maxFrameBytes)
	n, err := conn.Read(buf)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	return json.Unmarshal(buf[:n], reply)
}

// ReadFrame reads a single bounded frame from an accepted connection,
// for server-side handlers. A peer that closes without sending data
// surfaces as the read error (io.EOF); a read of zero bytes with no
// error returns nil, nil. Either way no frame bytes are returned.
func ReadFrame(conn net.Conn, timeout time.Duration) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, maxFrameBytes)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

// WriteReply writes a single JSON reply frame to an accepted
// connection.
func WriteReply(conn net.Conn, payload any, timeout time.Duration) error {
	conn.SetWriteDeadline(time.Now().Add(timeout))
	return json.NewEncoder(conn).Encode(payload)
}

// DecodeKind extracts the "type" tag from a raw frame so a dispatcher
// can pick the payload-specific struct to decode into next. A frame
// that isn't valid JSON is ErrDecodeFrame.
func DecodeKind(data []byte) (types.MessageKind, error) {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", overlayerr.ErrDecodeFrame, err)
	}
	return env.Type, nil
}

// NewCorrelationID returns a fresh UUID used only to tag a connection's
// log lines; it never crosses the wire and never affects protocol
// behavior.
func NewCorrelationID() string {
	return uuid.NewString()
}

// FanOut invokes fn for every endpoint concurrently, joined by a
// WaitGroup, with each goroutine writing only its own slot of the
// results slice (so no mutex is needed) — the same
// parallel-dispatch-then-join shape the teacher's replication
// coordinator used for fanning writes out to a preference list,
// generalized here from HTTP replication calls to arbitrary per-
// endpoint transport exchanges. The returned slice is in the same
// order as endpoints; a nil entry means fn succeeded.
func FanOut(endpoints []types.Endpoint, fn func(types.Endpoint) error) []error {
	results := make([]error, len(endpoints))
	var wg sync.WaitGroup

	for i, ep := range endpoints {
		wg.Add(1)
		go func(idx int, target types.Endpoint) {
			defer wg.Done()
			results[idx] = fn(target)
		}(i, ep)
	}
	wg.Wait()
	return results
}

// LogTransportError logs a swallowed transport failure through the
// standard logger; kept as a single choke point so the swallow-and-continue
// policy (spec section 7, TransportError) is visible in one place
// rather than scattered silent returns.
func LogTransportError(context string, ep types.Endpoint, err error) {
	if err == nil {
		return
	}
	log.Printf("[transport] %s -> %s failed (swallowed): %v", context, ep, err)
}
