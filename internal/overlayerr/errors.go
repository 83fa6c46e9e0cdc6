// Package overlayerr collects the sentinel errors the protocol code
// checks against, following the same exported-var idiom the storage
// engine used for ErrKeyNotFound and friends.
package overlayerr

import "errors"

var (
	// ErrConfigUnavailable means the seed configuration file is missing
	// or malformed. Fatal at startup.
	ErrConfigUnavailable = errors.New("overlay: seed configuration unavailable")

	// ErrAddressInUse means the process could not bind its listener.
	// Fatal at startup.
	ErrAddressInUse = errors.New("overlay: address already in use")

	// ErrDecodeFrame means a connection delivered bytes that do not
	// parse as the expected JSON frame. The connection is dropped with
	// no state change; the error never escapes to a peer.
	ErrDecodeFrame = errors.New("overlay: malformed frame")

	// ErrUnknownMessage means a frame's type tag is outside the known
	// message kinds. Ignored by the caller, never surfaced.
	ErrUnknownMessage = errors.New("overlay: unknown message kind")

	// ErrQuorumStall means too few seeds are reachable to make
	// progress. Not an error condition requiring action; liveness is
	// lost but safety holds until connectivity returns.
	ErrQuorumStall = errors.New("overlay: quorum unreachable")
)
