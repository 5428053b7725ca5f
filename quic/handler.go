// Package quic is the ambient I/O layer around the transport core: UDP
// socket management, per-connection dispatch, and the public Client/
// Listener surface. None of the RFC 9000/9001/9002 state machinery lives
// here; it is all package transport. This package only pumps bytes between
// a net.UDPConn and a transport.Conn and schedules its timers, per
// spec.md's "external collaborator" boundary.
package quic

import (
	"net"

	"github.com/goburrow/qeen/transport"
)

// EventConnAccept and EventConnClose extend transport.EventType with
// connection-lifecycle events that only make sense once a Conn is wrapped
// by a dispatcher: transport.Conn itself has no notion of "accepted" (it is
// constructed already attempted) or of the socket being torn down.
const (
	EventConnAccept transport.EventType = 0x40 + iota
	EventConnClose
)

// Conn is a QUIC connection bound to a UDP socket, handed to a Handler as
// inbound datagrams and timers are processed.
type Conn interface {
	// LocalAddr is the local socket address this connection is reachable on.
	LocalAddr() net.Addr
	// RemoteAddr is the peer's address on the currently active path.
	RemoteAddr() net.Addr
	// Stream returns the given stream, creating it locally if it does not
	// already exist. It returns nil if the id cannot be used (e.g. the
	// peer's concurrent-stream limit has been reached).
	Stream(id uint64) *transport.Stream
	// Close starts closing the connection, sending a CONNECTION_CLOSE with
	// the given application error code and reason.
	Close(errCode uint64, reason string) error
}

// Handler reacts to events delivered on a Conn: new/readable streams,
// resets, and the connection's own accept/close lifecycle.
type Handler interface {
	Serve(c Conn, events []transport.Event)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(c Conn, events []transport.Event)

// Serve calls f(c, events).
func (f HandlerFunc) Serve(c Conn, events []transport.Event) {
	f(c, events)
}
