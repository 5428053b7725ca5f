package quic

import (
	"crypto/rand"
	"net"
	"sync"

	"github.com/docker/go-events"
	"github.com/sirupsen/logrus"

	"github.com/goburrow/qeen/transport"
)

// maxDatagramSize bounds a single UDP read/write; it mirrors the transport
// package's own path MTU assumption (1452, typical Ethernet path minus
// IP/UDP headers) since the two must agree on what a "full" datagram is.
const maxDatagramSize = 1452

// lifecycle event topics broadcast on a dispatcher's sink.
const (
	connAccepted = "conn.accepted"
	connClosed   = "conn.closed"
)

// dispatcher owns one UDP socket and the set of transport connections
// multiplexed over it, keyed by the locally-chosen source connection ID.
// It is the direct analogue of a docker/go-events Broadcaster-fronted
// notification pipeline (see distribution's notifications package): every
// accept/close is published as an events.Event so operators can plug in
// arbitrary sinks (metrics, audit logs) without dispatcher.go knowing about
// them.
type dispatcher struct {
	socket *net.UDPConn
	config *transport.Config
	logger *logger

	handler Handler

	// onUnmatched handles a datagram whose DCID does not match any known
	// connection. A Client leaves this nil (always drop). A Listener uses
	// it to accept new connections.
	onUnmatched func(data []byte, addr *net.UDPAddr)

	broadcaster *events.Broadcaster
	metrics     *metricsCollector

	mu    sync.Mutex
	conns map[string]*remoteConn

	closing chan struct{}
	wg      sync.WaitGroup
}

func newDispatcher(socket *net.UDPConn, config *transport.Config) *dispatcher {
	d := &dispatcher{
		socket:      socket,
		config:      config,
		logger:      &logger{level: levelOff},
		broadcaster: events.NewBroadcaster(),
		conns:       make(map[string]*remoteConn),
		closing:     make(chan struct{}),
	}
	return d
}

func (d *dispatcher) sink(s events.Sink) {
	if err := d.broadcaster.Add(s); err != nil {
		logrus.WithError(err).Warn("quic: failed to attach event sink")
	}
}

func (d *dispatcher) start() {
	d.wg.Add(1)
	go d.readLoop()
}

func (d *dispatcher) readLoop() {
	defer d.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := d.socket.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-d.closing:
				return
			default:
			}
			logrus.WithError(err).Debug("quic: udp read failed")
			return
		}
		d.route(buf[:n], addr)
	}
}

// writeTo sends a datagram that does not belong to any established Conn,
// such as a stateless Retry or Version Negotiation packet.
func (d *dispatcher) writeTo(b []byte, addr *net.UDPAddr) error {
	_, err := d.socket.WriteToUDP(b, addr)
	return err
}

func (d *dispatcher) route(data []byte, addr *net.UDPAddr) {
	h, err := transport.DecodeHeader(data, cidRoutingLen)
	if err != nil {
		logrus.WithError(err).Debug("quic: dropping undecodable datagram")
		return
	}
	d.mu.Lock()
	c := d.conns[string(h.DCID)]
	d.mu.Unlock()
	if c == nil {
		if d.onUnmatched != nil {
			d.onUnmatched(data, addr)
		}
		return
	}
	c.deliver(data)
}

// add registers a new connection under its local scid and starts its actor
// loop.
func (d *dispatcher) add(c *remoteConn) {
	d.mu.Lock()
	d.conns[string(c.scid)] = c
	d.mu.Unlock()
	d.logger.attachLogger(c)
	if d.metrics != nil {
		d.metrics.Track(c)
	}
	if err := d.broadcaster.Write(lifecycleEvent{topic: connAccepted, trace: c.trace}); err != nil {
		logrus.WithError(err).Debug("quic: broadcaster write failed")
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		c.run()
	}()
}

// remove drops a connection from the routing table. Called from the
// connection's own actor goroutine as it exits.
func (d *dispatcher) remove(c *remoteConn) {
	d.mu.Lock()
	delete(d.conns, string(c.scid))
	d.mu.Unlock()
	d.logger.detachLogger(c)
	if d.metrics != nil {
		d.metrics.Untrack(c)
	}
	if err := d.broadcaster.Write(lifecycleEvent{topic: connClosed, trace: c.trace}); err != nil {
		logrus.WithError(err).Debug("quic: broadcaster write failed")
	}
}

func (d *dispatcher) close() error {
	close(d.closing)
	err := d.socket.Close()
	d.mu.Lock()
	conns := make([]*remoteConn, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.mu.Unlock()
	for _, c := range conns {
		c.stop()
	}
	d.wg.Wait()
	d.broadcaster.Close()
	return err
}

// lifecycleEvent is the payload dispatched through the broadcaster for
// connection accept/close notifications.
type lifecycleEvent struct {
	topic string
	trace string
}

// cidRoutingLen is the length dispatcher.route assumes for short-header
// destination connection IDs. It must match the length this process hands
// out via newLocalCID, since a peer echoes back exactly what it was given.
const cidRoutingLen = 8

func newLocalCID() ([]byte, error) {
	b := make([]byte, cidRoutingLen)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
